package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readhub/internal/config"
	"readhub/internal/constants"
	"readhub/internal/db"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorDetail    `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-which-is-long-enough-for-hs256",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 14 * 24 * time.Hour,
		},
		OAuth: config.OAuthConfig{
			VerifyTimeout: time.Second,
		},
	}

	return NewServer(cfg, database)
}

func doJSON(t *testing.T, server *Server, method, path, body, bearer string) (*httptest.ResponseRecorder, *testEnvelope) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	envelope := &testEnvelope{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), envelope); err != nil {
			t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
		}
	}
	return rr, envelope
}

func registerTestAccount(t *testing.T, server *Server, email, nickname string) *AuthResponse {
	t.Helper()

	body := `{"email":"` + email + `","password":"password123","nickname":"` + nickname + `"}`
	rr, envelope := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", body, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d, body=%q", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp AuthResponse
	if err := json.Unmarshal(envelope.Data, &resp); err != nil {
		t.Fatalf("json.Unmarshal(data) error = %v", err)
	}
	return &resp
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	server := newTestServer(t)

	registered := registerTestAccount(t, server, "alice@example.com", "alice")
	if registered.User.Profile == nil || registered.User.Profile.Nickname != "alice" {
		t.Fatal("register response should include the profile")
	}
	if registered.Tokens.TokenType != "Bearer" {
		t.Fatalf("tokenType = %q, want Bearer", registered.Tokens.TokenType)
	}

	// The password hash must never appear on the wire.
	if strings.Contains(strings.ToLower(string(mustMarshal(t, registered.User))), "hash") {
		t.Fatal("serialized user should not expose the password hash")
	}

	// Duplicate registration conflicts.
	rr, envelope := doJSON(t, server, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","password":"password123","nickname":"alice2"}`, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeUserExists {
		t.Fatalf("duplicate register error = %+v, want code %s", envelope.Error, constants.ErrCodeUserExists)
	}

	// Wrong password is unauthorized with the credentials code.
	rr, envelope = doJSON(t, server, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong-password"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeInvalidCredentials {
		t.Fatalf("bad login error = %+v, want code %s", envelope.Error, constants.ErrCodeInvalidCredentials)
	}

	// Correct login succeeds.
	rr, envelope = doJSON(t, server, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"password123"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}
	var login AuthResponse
	if err := json.Unmarshal(envelope.Data, &login); err != nil {
		t.Fatalf("json.Unmarshal(data) error = %v", err)
	}

	// The refresh token buys a fresh pair.
	rr, envelope = doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh",
		`{"refreshToken":"`+login.Tokens.RefreshToken+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}
	var refreshed TokensResponse
	if err := json.Unmarshal(envelope.Data, &refreshed); err != nil {
		t.Fatalf("json.Unmarshal(data) error = %v", err)
	}
	if refreshed.Tokens.AccessToken == "" || refreshed.Tokens.RefreshToken == "" {
		t.Fatal("refresh should return a full pair")
	}
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"email":`},
		{name: "empty body", body: `{}`},
		{name: "bad email", body: `{"email":"not-an-email","password":"password123","nickname":"alice"}`},
		{name: "short password", body: `{"email":"alice@example.com","password":"short","nickname":"alice"}`},
		{name: "nickname with spaces", body: `{"email":"alice@example.com","password":"password123","nickname":"al ice"}`},
		{name: "unknown field", body: `{"email":"alice@example.com","password":"password123","nickname":"alice","admin":true}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr, envelope := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", test.body, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
			if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeInvalidRequest {
				t.Fatalf("error = %+v, want code %s", envelope.Error, constants.ErrCodeInvalidRequest)
			}
		})
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	server := newTestServer(t)
	registered := registerTestAccount(t, server, "alice@example.com", "alice")

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "access token in refresh slot", token: registered.Tokens.AccessToken},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr, envelope := doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh",
				`{"refreshToken":"`+test.token+`"}`, "")
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeInvalidRefreshToken {
				t.Fatalf("error = %+v, want code %s", envelope.Error, constants.ErrCodeInvalidRefreshToken)
			}
		})
	}
}

func TestOAuthLoginUnknownProvider(t *testing.T) {
	server := newTestServer(t)

	// No client IDs configured, so no provider resolves.
	rr, envelope := doJSON(t, server, http.MethodPost, "/api/v1/auth/oauth/google",
		`{"idToken":"some-token"}`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeOAuthFailed {
		t.Fatalf("error = %+v, want code %s", envelope.Error, constants.ErrCodeOAuthFailed)
	}
}

func TestLogout(t *testing.T) {
	server := newTestServer(t)
	registered := registerTestAccount(t, server, "alice@example.com", "alice")

	rr, _ := doJSON(t, server, http.MethodDelete, "/api/v1/auth/logout", "", registered.Tokens.AccessToken)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d, body=%q", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	// Without a bearer token the route is unreachable.
	rr, envelope := doJSON(t, server, http.MethodDelete, "/api/v1/auth/logout", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated logout status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if envelope.Error == nil || envelope.Error.Code != constants.ErrCodeUnauthorized {
		t.Fatalf("error = %+v, want code %s", envelope.Error, constants.ErrCodeUnauthorized)
	}

	// A refresh token is not a valid bearer credential.
	rr, _ = doJSON(t, server, http.MethodDelete, "/api/v1/auth/logout", "", registered.Tokens.RefreshToken)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh-as-bearer logout status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return data
}
