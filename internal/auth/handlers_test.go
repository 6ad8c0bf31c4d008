package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/logging"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/fdg312/fitclub/internal/storage/memory"
	"github.com/fdg312/fitclub/internal/userctx"
)

func testConfig(authRequired bool) *config.Config {
	return &config.Config{
		AuthRequired:  authRequired,
		AuthDevLogin:  true,
		DefaultUserID: "default",
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "fitclub-test",
		JWTTTLMinutes: 60,
	}
}

func setupTestService(authRequired bool) (*Service, *config.Config) {
	cfg := testConfig(authRequired)
	return NewService(cfg, memory.New()), cfg
}

func postDev(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.HandleDevAuth(w, req)
	return w
}

func TestHandleDevAuth(t *testing.T) {
	service, _ := setupTestService(true)
	handler := NewHandlers(service, logging.Discard())

	w := postDev(t, handler, `{"email":"coach@example.com","name":"Coach","role":"coach"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp DevAuthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.AccessToken == "" {
		t.Error("expected access_token not empty")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("expected token_type Bearer, got %q", resp.TokenType)
	}
	if resp.ExpiresIn != int64((60 * time.Minute).Seconds()) {
		t.Errorf("expected expires_in 3600, got %d", resp.ExpiresIn)
	}
	if resp.Role != storage.RoleCoach {
		t.Errorf("expected role coach, got %q", resp.Role)
	}

	// Second login with the same email returns the same member and keeps the role.
	w = postDev(t, handler, `{"email":"COACH@example.com","role":"admin"}`)
	var again DevAuthResponse
	json.NewDecoder(w.Body).Decode(&again)
	if again.UserID != resp.UserID {
		t.Errorf("expected same user id, got %q and %q", resp.UserID, again.UserID)
	}
	if again.Role != storage.RoleCoach {
		t.Errorf("expected role to stay coach, got %q", again.Role)
	}
}

func TestHandleDevAuthErrors(t *testing.T) {
	service, cfg := setupTestService(true)
	handler := NewHandlers(service, logging.Discard())

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"InvalidJSON", `{`, http.StatusBadRequest},
		{"InvalidEmail", `{"email":"nope"}`, http.StatusBadRequest},
		{"InvalidRole", `{"email":"a@example.com","role":"owner"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postDev(t, handler, tt.body); w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}

	t.Run("Disabled", func(t *testing.T) {
		cfg.AuthDevLogin = false
		defer func() { cfg.AuthDevLogin = true }()
		if w := postDev(t, handler, `{"email":"a@example.com"}`); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestMiddlewareAuth(t *testing.T) {
	service, cfg := setupTestService(true)
	middleware := NewMiddleware(cfg, service, logging.Discard())

	t.Run("ValidToken", func(t *testing.T) {
		token, err := service.GenerateToken("test_user_123", storage.RoleAdmin, time.Hour)
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/nutrition-plans", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var calledNext bool
		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledNext = true
			userID, ok := GetUserID(r.Context())
			if !ok || userID != "test_user_123" {
				t.Errorf("expected user_id in context")
			}
			if !userctx.IsAdmin(r.Context()) {
				t.Errorf("expected admin role in context")
			}
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !calledNext {
			t.Error("expected next handler to be called")
		}
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/nutrition-plans", nil)
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/nutrition-plans", nil)
		req.Header.Set("Authorization", "Bearer invalid_token")
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("PublicPaths", func(t *testing.T) {
		paths := []struct{ method, path string }{
			{"GET", "/healthz"},
			{"GET", "/metrics"},
			{"POST", "/v1/auth/dev"},
			{"GET", "/v1/memberships"},
		}
		for _, p := range paths {
			req := httptest.NewRequest(p.method, p.path, nil)
			req.Header.Set("Authorization", "Bearer invalid")
			w := httptest.NewRecorder()

			var called bool
			middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, req)

			if !called || w.Code != http.StatusOK {
				t.Errorf("%s %s: expected passthrough, called=%v status=%d", p.method, p.path, called, w.Code)
			}
		}
	})

	t.Run("MembershipWriteIsNotPublic", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/memberships", nil)
		w := httptest.NewRecorder()
		middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		})).ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})
}

func TestMiddlewareAuthNotRequired(t *testing.T) {
	service, cfg := setupTestService(false)
	middleware := NewMiddleware(cfg, service, logging.Discard())

	t.Run("DefaultUser", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/nutrition-plans", nil)
		w := httptest.NewRecorder()

		var gotUser, gotRole string
		middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, _ = GetUserID(r.Context())
			gotRole = userctx.GetRole(r.Context())
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if gotUser != "default" || gotRole != storage.RoleMember {
			t.Errorf("expected default member identity, got %q/%q", gotUser, gotRole)
		}
	})

	t.Run("TokenStillVerified", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/nutrition-plans", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()
		middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		})).ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, storage.RoleAdmin)

	tests := []struct {
		name     string
		userID   string
		role     string
		wantCode int
	}{
		{"Anonymous", "", "", http.StatusUnauthorized},
		{"Member", "u1", storage.RoleMember, http.StatusForbidden},
		{"Coach", "u2", storage.RoleCoach, http.StatusForbidden},
		{"Admin", "u3", storage.RoleAdmin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/admin/members", nil)
			ctx := userctx.WithRole(userctx.WithUserID(req.Context(), tt.userID), tt.role)
			w := httptest.NewRecorder()
			handler(w, req.WithContext(ctx))
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestJWTGeneration(t *testing.T) {
	service, cfg := setupTestService(true)

	token, err := service.GenerateToken("test_user_123", storage.RoleCoach, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Error("expected token not empty")
	}

	claims, err := service.VerifyJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "test_user_123" {
		t.Errorf("expected sub 'test_user_123', got '%s'", claims.Subject)
	}
	if claims.Role != storage.RoleCoach {
		t.Errorf("expected role coach, got %q", claims.Role)
	}

	t.Run("Expired", func(t *testing.T) {
		expired, err := service.GenerateToken("u", storage.RoleMember, -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(expired); err != ErrTokenExpired {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewService(&config.Config{JWTSecret: cfg.JWTSecret, JWTIssuer: "someone-else"}, memory.New())
		foreign, err := other.GenerateToken("u", storage.RoleMember, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(foreign); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewService(&config.Config{JWTSecret: "another", JWTIssuer: cfg.JWTIssuer}, memory.New())
		foreign, err := other.GenerateToken("u", storage.RoleMember, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(foreign); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
