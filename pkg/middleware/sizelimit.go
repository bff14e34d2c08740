package middleware

import "net/http"

// DefaultMaxRequestSize bounds request bodies at 1 MiB. Query and
// widget payloads are small JSON documents; anything larger is not a
// legitimate request.
const DefaultMaxRequestSize = 1 << 20

// RequestSizeLimiter rejects oversized request bodies.
type RequestSizeLimiter struct {
	maxSize int64
}

// NewRequestSizeLimiter creates a limiter. maxSize is in bytes; zero
// or negative falls back to DefaultMaxRequestSize.
func NewRequestSizeLimiter(maxSize int64) *RequestSizeLimiter {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	return &RequestSizeLimiter{maxSize: maxSize}
}

// Middleware enforces the body size limit. A declared Content-Length
// over the limit is rejected before reading; chunked bodies are capped
// by MaxBytesReader, which errors the handler's read past the limit.
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > rsl.maxSize {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"request_too_large","message":"Request body exceeds limit"}`, http.StatusRequestEntityTooLarge)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)

		next.ServeHTTP(w, r)
	})
}
