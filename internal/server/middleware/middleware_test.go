package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
)

func TestRequestSizeLimits(t *testing.T) {
	const maxRequestSize = 64

	router := chi.NewRouter()
	router.Use(RequestSizeLimit(maxRequestSize))
	router.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		bodySize      int
		contentLength int64
		wantCode      int
	}{
		{"at the limit", maxRequestSize, maxRequestSize, http.StatusOK},
		{"content length over the limit", 2 * maxRequestSize, 2 * maxRequestSize, http.StatusRequestEntityTooLarge},
		// the body reader is capped when the length is unknown
		{"unknown length over the limit", 2 * maxRequestSize, -1, http.StatusRequestEntityTooLarge},
		{"understated length", 2 * maxRequestSize, 10, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", tt.bodySize)))
			req.ContentLength = tt.contentLength

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rr.Code, tt.wantCode)
			}
			if header := rr.Header().Get("X-Max-Request-Size"); header != "64" {
				t.Errorf("X-Max-Request-Size = %q, want 64", header)
			}
		})
	}
}

func TestRequestSizeLimitErrorIsPlainJSON(t *testing.T) {
	handler := RequestSizeLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"content":"0123456789"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != api.ErrCodeRequestTooLarge || resp.Status {
		t.Errorf("response = %+v", resp)
	}
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		environment string
		wantHSTS    bool
	}{
		{"dev", false},
		{"test", false},
		{"staging", true},
		{"prod", true},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			handler := SecurityHeaders(tt.environment)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if got := rr.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q", got)
			}
			if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			if hsts := rr.Header().Get("Strict-Transport-Security") != ""; hsts != tt.wantHSTS {
				t.Errorf("HSTS set = %v, want %v", hsts, tt.wantHSTS)
			}
		})
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	router := chi.NewRouter()
	router.Use(RateLimit(1, 2)) // 1 request per second, burst of 2
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	get := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	// requests within the burst succeed, whatever the source port
	for i, addr := range []string{"192.0.2.1:1000", "192.0.2.1:1001"} {
		if rr := get(addr); rr.Code != http.StatusOK {
			t.Errorf("request %d: got status %d, want %d", i+1, rr.Code, http.StatusOK)
		}
	}

	rr := get("192.0.2.1:1002")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request over the burst: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rr.Header().Get("Retry-After"))
	}

	// another client has its own budget
	if rr := get("198.51.100.7:1000"); rr.Code != http.StatusOK {
		t.Errorf("other client: got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitIsDisabled(t *testing.T) {
	tests := []struct {
		name          string
		rps           int32
		expectLimited bool
	}{
		{"Rate limiting enabled", 10, true},
		{"Rate limiting disabled with 0", 0, false},
		{"Rate limiting disabled with negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Use(RateLimit(tt.rps, 1)) // burst of 1 for easy testing
			router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			for i := 0; i < 2; i++ {
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

				wantCode := http.StatusOK
				if tt.expectLimited && i == 1 {
					wantCode = http.StatusTooManyRequests
				}
				if rr.Code != wantCode {
					t.Errorf("request %d: got status %d, want %d", i+1, rr.Code, wantCode)
				}
			}
		})
	}
}

func TestIdleClientLimitersAreEvicted(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(1, 1, func() time.Time { return now })

	limiters.allow("192.0.2.1")
	limiters.allow("192.0.2.2")
	if limiters.size() != 2 {
		t.Fatalf("size = %d, want 2", limiters.size())
	}

	now = now.Add(limiterIdleTimeout + time.Second)
	if !limiters.allow("192.0.2.3") {
		t.Error("new client was limited")
	}
	if limiters.size() != 1 {
		t.Errorf("size after sweep = %d, want 1", limiters.size())
	}
}
