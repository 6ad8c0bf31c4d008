package usernutritionplans

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/fitclub/internal/logging"
	"github.com/fdg312/fitclub/internal/storage/memory"
	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
)

const calcBody = `{"goal":"maintain","activity_level":"moderate","gender":"male","age":30,"height_cm":180,"weight_kg":80}`

func newTestHandler() *Handler {
	svc := NewService(memory.New(), logging.Discard())
	return NewHandler(svc, logging.Discard())
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(userctx.WithUserID(r.Context(), userID))
}

func createPlan(t *testing.T, h *Handler, userID string) UserNutritionPlanDTO {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleCreate(w, withUser(httptest.NewRequest("POST", "/v1/user-nutrition-plans", bytes.NewBufferString(calcBody)), userID))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var dto UserNutritionPlanDTO
	if err := json.Unmarshal(w.Body.Bytes(), &dto); err != nil {
		t.Fatal(err)
	}
	return dto
}

func planRequest(method, action string, id uuid.UUID, userID string) *http.Request {
	path := "/v1/user-nutrition-plans/" + id.String()
	if action != "" {
		path += "/" + action
	}
	req := httptest.NewRequest(method, path, nil)
	req.SetPathValue("id", id.String())
	return withUser(req, userID)
}

func TestHandleCalculate(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.HandleCalculate(w, httptest.NewRequest("POST", "/v1/user-nutrition-plans/calculate", bytes.NewBufferString(calcBody)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Targets
	json.NewDecoder(w.Body).Decode(&got)
	if got.TargetCalories != 2759 {
		t.Errorf("expected 2759 kcal, got %v", got.TargetCalories)
	}

	w = httptest.NewRecorder()
	h.HandleCalculate(w, httptest.NewRequest("POST", "/v1/user-nutrition-plans/calculate", bytes.NewBufferString(`{"goal":"maintain"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete input, got %d", w.Code)
	}
}

func TestActivatePausesOthers(t *testing.T) {
	h := newTestHandler()

	first := createPlan(t, h, "u1")
	second := createPlan(t, h, "u1")
	if second.Status != StatusActive {
		t.Fatalf("expected new plan active, got %s", second.Status)
	}

	w := httptest.NewRecorder()
	h.HandleGet(w, planRequest("GET", "", first.ID, "u1"))
	var got UserNutritionPlanDTO
	json.NewDecoder(w.Body).Decode(&got)
	if got.Status != StatusPaused {
		t.Errorf("expected first plan paused, got %s", got.Status)
	}

	w = httptest.NewRecorder()
	h.HandleActivate(w, planRequest("POST", "activate", first.ID, "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.HandleList(w, withUser(httptest.NewRequest("GET", "/v1/user-nutrition-plans", nil), "u1"))
	var list UserNutritionPlansResponse
	json.NewDecoder(w.Body).Decode(&list)
	active := 0
	for _, p := range list.Plans {
		if p.Status == StatusActive {
			active++
			if p.ID != first.ID {
				t.Errorf("expected %s active, got %s", first.ID, p.ID)
			}
		}
	}
	if len(list.Plans) != 2 || active != 1 {
		t.Errorf("expected 2 plans with one active, got %d/%d", len(list.Plans), active)
	}

	w = httptest.NewRecorder()
	h.HandlePause(w, planRequest("POST", "pause", first.ID, "u1"))
	json.NewDecoder(w.Body).Decode(&got)
	if got.Status != StatusPaused {
		t.Errorf("expected paused, got %s", got.Status)
	}
}

func TestForeignPlanHidden(t *testing.T) {
	h := newTestHandler()
	plan := createPlan(t, h, "owner")

	for _, tc := range []struct {
		name string
		call func(w http.ResponseWriter, r *http.Request)
		req  *http.Request
	}{
		{"Get", h.HandleGet, planRequest("GET", "", plan.ID, "other")},
		{"Activate", h.HandleActivate, planRequest("POST", "activate", plan.ID, "other")},
		{"Delete", h.HandleDelete, planRequest("DELETE", "", plan.ID, "other")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.call(w, tc.req)
			if w.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	h.HandleDelete(w, planRequest("DELETE", "", plan.ID, "owner"))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.HandleGet(w, planRequest("GET", "", plan.ID, "owner"))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}
