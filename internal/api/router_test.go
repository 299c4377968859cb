package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"readhub/internal/constants"
)

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	rr, envelope := doJSON(t, server, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !envelope.Success {
		t.Fatal("health response should use the success envelope")
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if called {
		t.Fatal("expected preflight request not to reach next handler")
	}
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("Access-Control-Allow-Origin should be set on preflight")
	}
}

func TestSecurityHeaders(t *testing.T) {
	server := newTestServer(t)

	rr, _ := doJSON(t, server, http.MethodGet, "/health", "", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestLoginRateLimit(t *testing.T) {
	server := newTestServer(t)

	body := `{"email":"alice@example.com","password":"password123"}`
	var last *httptest.ResponseRecorder
	var envelope *testEnvelope
	for range 11 {
		last, envelope = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", body, "")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeRateLimitExceeded {
		t.Fatalf("error = %+v, want code %s", envelope.Error, constants.ErrCodeRateLimitExceeded)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server := newTestServer(t)

	rr, _ := doJSON(t, server, http.MethodGet, "/api/v1/does-not-exist", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
