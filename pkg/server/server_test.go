package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/querylens/querylens/pkg/config"
)

func newTestServer(t *testing.T, cfg Config) *GracefulServer {
	t.Helper()
	srv, err := NewGracefulServer(cfg)
	if err != nil {
		t.Fatalf("NewGracefulServer() error = %v", err)
	}
	return srv
}

func TestGracefulServerTrackRequests(t *testing.T) {
	srv := newTestServer(t, Config{
		Addr: ":0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}),
	})

	handler := srv.TrackRequestsMiddleware(srv.server.Handler)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
		}()
	}

	// Wait a bit for requests to start
	time.Sleep(10 * time.Millisecond)

	if srv.InFlightRequests() == 0 {
		t.Error("Should have in-flight requests")
	}

	wg.Wait()

	if inFlight := srv.InFlightRequests(); inFlight != 0 {
		t.Errorf("In-flight requests should be 0, got %d", inFlight)
	}
}

func TestGracefulServerRejectsRequestsDuringShutdown(t *testing.T) {
	srv := newTestServer(t, Config{
		Addr: ":0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})

	handler := srv.TrackRequestsMiddleware(srv.server.Handler)

	srv.isShuttingDown.Store(true)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	srv := newTestServer(t, Config{
		Addr:    ":0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	})

	handler := srv.ReadinessHandler()

	t.Run("Ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}

		if body := w.Body.String(); body != `{"ready":true,"in_flight_requests":0}` {
			t.Errorf("Unexpected body: %s", body)
		}
	})

	t.Run("NotReady", func(t *testing.T) {
		srv.isShuttingDown.Store(true)

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
	})
}

func TestShutdownCallbacks(t *testing.T) {
	callbackExecuted := false

	RegisterShutdownCallback(func(ctx context.Context) error {
		callbackExecuted = true
		return nil
	})

	if err := executeShutdownCallbacks(context.Background()); err != nil {
		t.Errorf("executeShutdownCallbacks() error = %v", err)
	}

	if !callbackExecuted {
		t.Error("Shutdown callback was not executed")
	}

	// Reset for other tests
	shutdownCallbacks = nil
}

func TestDrainRequests(t *testing.T) {
	srv := newTestServer(t, Config{
		Addr:         ":0",
		Handler:      http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		DrainTimeout: 1 * time.Second,
	})

	srv.inFlightRequests.Add(3)

	go func() {
		time.Sleep(100 * time.Millisecond)
		srv.inFlightRequests.Add(-3)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := srv.drainRequests(ctx); err != nil {
		t.Errorf("drainRequests() error = %v", err)
	}

	if srv.InFlightRequests() != 0 {
		t.Errorf("In-flight requests should be 0, got %d", srv.InFlightRequests())
	}
}

func TestDrainRequestsTimeout(t *testing.T) {
	srv := newTestServer(t, Config{
		Addr:         ":0",
		Handler:      http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		DrainTimeout: 100 * time.Millisecond,
	})

	srv.inFlightRequests.Add(5)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := srv.drainRequests(ctx); err == nil {
		t.Error("drainRequests() should timeout with error")
	}

	srv.inFlightRequests.Add(-5)
}

func TestFromServerConfig(t *testing.T) {
	cfg := FromServerConfig(config.ServerConfig{
		Addr:            ":9090",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    20 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}, http.NotFoundHandler())

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if !cfg.GZIP {
		t.Error("GZIP should be enabled by default")
	}
}
