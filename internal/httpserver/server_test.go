package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            8080,
		AuthRequired:    true,
		AuthDevLogin:    true,
		JWTSecret:       "test-secret",
		JWTIssuer:       "fitclub",
		JWTTTLMinutes:   60,
		PersistTimeout:  time.Second,
		DraftTTL:        time.Hour,
		MaxPlanDays:     7,
		MaxMealsPerDay:  6,
		MaxItemsPerMeal: 10,
		ExportMaxDays:   7,
		ExportsPerPage:  20,
		Blob:            config.BlobConfig{Mode: config.BlobModeLocal},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(context.Background(), testConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signIn(t *testing.T, h http.Handler, email, role string) string {
	t.Helper()
	w := do(t, h, "POST", "/v1/auth/dev", "", `{"email":"`+email+`","role":"`+role+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("dev auth: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	if w := do(t, srv.Handler(), "GET", "/v1/nutrition-plans", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w := do(t, srv.Handler(), "GET", "/v1/memberships", "", ""); w.Code != http.StatusOK {
		t.Errorf("public memberships list: expected 200, got %d", w.Code)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	member := signIn(t, h, "member@example.com", "member")
	admin := signIn(t, h, "admin@example.com", "admin")

	body := `{"name":"Gold","price_cents":4900,"duration_days":30,"features":["nutrition_plans"]}`
	if w := do(t, h, "POST", "/v1/memberships", member, body); w.Code != http.StatusForbidden {
		t.Errorf("member creating membership: expected 403, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/v1/memberships", admin, body); w.Code != http.StatusCreated {
		t.Errorf("admin creating membership: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, h, "GET", "/v1/admin/members", member, ""); w.Code != http.StatusForbidden {
		t.Errorf("member listing members: expected 403, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/v1/admin/members", admin, ""); w.Code != http.StatusOK {
		t.Errorf("admin listing members: expected 200, got %d", w.Code)
	}
}

func TestPlanLifecycleThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signIn(t, h, "coach@example.com", "coach")

	w := do(t, h, "POST", "/v1/plan-drafts", token, `{"name":"Week one"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var draft struct {
		ID string `json:"id"`
	}
	json.NewDecoder(w.Body).Decode(&draft)

	ops := []string{
		`{"op":"add_item","product_id":"6f1c1a52-0d3e-4b8a-9a51-000000000001","quantity":150}`,
		`{"op":"add_item","product_id":"6f1c1a52-0d3e-4b8a-9a51-000000000002","quantity":200}`,
	}
	for _, op := range ops {
		if w := do(t, h, "POST", "/v1/plan-drafts/"+draft.ID+"/ops", token, op); w.Code != http.StatusOK {
			t.Fatalf("apply %s: expected 200, got %d: %s", op, w.Code, w.Body.String())
		}
	}

	w = do(t, h, "POST", "/v1/plan-drafts/"+draft.ID+"/submit", token, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var plan struct {
		ID     string `json:"id"`
		Totals struct {
			AveragePerDay struct {
				Calories float64 `json:"calories"`
			} `json:"average_per_day"`
		} `json:"totals"`
	}
	json.NewDecoder(w.Body).Decode(&plan)
	if plan.Totals.AveragePerDay.Calories != 507.5 {
		t.Errorf("expected 507.5 kcal, got %v", plan.Totals.AveragePerDay.Calories)
	}

	if w := do(t, h, "GET", "/v1/nutrition-plans/"+plan.ID+"/summary", token, ""); w.Code != http.StatusOK {
		t.Errorf("summary: expected 200, got %d", w.Code)
	}

	w = do(t, h, "POST", "/v1/nutrition-plans/"+plan.ID+"/exports", token, `{"format":"csv"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("export: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fitclub_nutrition_plans_persisted_total") {
		t.Errorf("expected persisted counter in metrics output, got %d", w.Code)
	}
}
