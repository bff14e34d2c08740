package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sizeLimitedEcho(limiter *RequestSizeLimiter) http.Handler {
	return limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequestSizeLimiterAllowsSmallBody(t *testing.T) {
	handler := sizeLimitedEcho(NewRequestSizeLimiter(1024))

	req := httptest.NewRequest("POST", "/api/query", bytes.NewReader(make([]byte, 512)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("small body rejected: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequestSizeLimiterRejectsDeclaredOversize(t *testing.T) {
	handler := sizeLimitedEcho(NewRequestSizeLimiter(1024))

	req := httptest.NewRequest("POST", "/api/query", bytes.NewReader(make([]byte, 2048)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversize body accepted: got %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestRequestSizeLimiterCapsUndeclaredBody(t *testing.T) {
	handler := sizeLimitedEcho(NewRequestSizeLimiter(1024))

	// No Content-Length: the read itself must hit the cap.
	req := httptest.NewRequest("POST", "/api/query", io.NopCloser(bytes.NewReader(make([]byte, 2048))))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("uncapped body accepted: got %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestRequestSizeLimiterDefault(t *testing.T) {
	limiter := NewRequestSizeLimiter(0)
	if limiter.maxSize != DefaultMaxRequestSize {
		t.Errorf("default maxSize = %d, want %d", limiter.maxSize, DefaultMaxRequestSize)
	}
}
