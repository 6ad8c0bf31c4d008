package nutritionplans

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/fitclub/internal/foodproducts"
	"github.com/fdg312/fitclub/internal/logging"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/fdg312/fitclub/internal/storage/memory"
	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
)

var (
	chickenID = uuid.MustParse("6f1c1a52-0d3e-4b8a-9a51-000000000001")
	riceID    = uuid.MustParse("6f1c1a52-0d3e-4b8a-9a51-000000000002")
)

type membershipFunc func(ctx context.Context, userID string) (*uuid.UUID, error)

func (f membershipFunc) ActiveMembership(ctx context.Context, userID string) (*uuid.UUID, error) {
	return f(ctx, userID)
}

// recordingStorage counts writes and can fail or stall them.
type recordingStorage struct {
	storage.NutritionPlansStorage
	writes   int
	failWith error
	stall    bool
}

func (s *recordingStorage) CreateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	s.writes++
	if err := s.intercept(ctx); err != nil {
		return err
	}
	return s.NutritionPlansStorage.CreateNutritionPlan(ctx, plan)
}

func (s *recordingStorage) UpdateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	s.writes++
	if err := s.intercept(ctx); err != nil {
		return err
	}
	return s.NutritionPlansStorage.UpdateNutritionPlan(ctx, plan)
}

func (s *recordingStorage) intercept(ctx context.Context) error {
	if s.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.failWith
}

type testEnv struct {
	handler     *Handler
	service     *Service
	store       *recordingStorage
	memberships map[string]uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	env := &testEnv{
		store:       &recordingStorage{NutritionPlansStorage: st},
		memberships: map[string]uuid.UUID{},
	}
	env.service = NewService(Options{
		Storage:  env.store,
		Products: foodproducts.NewService(st),
		Memberships: membershipFunc(func(ctx context.Context, userID string) (*uuid.UUID, error) {
			if id, ok := env.memberships[userID]; ok {
				return &id, nil
			}
			return nil, nil
		}),
		Limits:         Limits{MaxDays: 3, MaxMealsPerDay: 4, MaxItemsPerMeal: 5},
		PersistTimeout: 50 * time.Millisecond,
		Logger:         logging.Discard(),
	})
	env.handler = NewHandler(env.service, logging.Discard())
	return env
}

func asUser(r *http.Request, userID, role string) *http.Request {
	ctx := userctx.WithRole(userctx.WithUserID(r.Context(), userID), role)
	return r.WithContext(ctx)
}

func withID(r *http.Request, id uuid.UUID) *http.Request {
	r.SetPathValue("id", id.String())
	return r
}

const chickenRicePlan = `{
	"name": "Cut week",
	"days": [
		{"meals": [{"name": "Pietūs", "items": [
			{"product_id": "6f1c1a52-0d3e-4b8a-9a51-000000000001", "quantity": 150},
			{"product_id": "6f1c1a52-0d3e-4b8a-9a51-000000000002", "quantity": 200}
		]}]}
	]
}`

func (env *testEnv) create(t *testing.T, userID, role, body string) (*httptest.ResponseRecorder, PlanDTO) {
	t.Helper()
	req := asUser(httptest.NewRequest("POST", "/v1/nutrition-plans", bytes.NewBufferString(body)), userID, role)
	w := httptest.NewRecorder()
	env.handler.HandleCreate(w, req)
	var dto PlanDTO
	if w.Code == http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &dto); err != nil {
			t.Fatalf("decode plan: %v", err)
		}
	}
	return w, dto
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v (%s)", err, w.Body.String())
	}
	return resp.Error
}

func TestHandleCreateComputesTotals(t *testing.T) {
	env := newTestEnv(t)

	w, plan := env.create(t, "user-a", storage.RoleMember, chickenRicePlan)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if plan.OwnerUserID != "user-a" {
		t.Errorf("expected owner user-a, got %q", plan.OwnerUserID)
	}
	if len(plan.Days) != 1 || plan.Days[0].DayNumber != 1 || plan.Days[0].Meals[0].MealNumber != 1 {
		t.Fatalf("unexpected tree: %+v", plan.Days)
	}
	items := plan.Days[0].Meals[0].Items
	if items[0].ProductName == "" || items[0].Nutrition.Calories != 247.5 {
		t.Errorf("expected chicken snapshot with 247.5 kcal, got %+v", items[0])
	}

	avg := plan.Totals.AveragePerDay
	if avg.Calories != 508 || avg.Protein != 51.9 || avg.Carbs != 56 || avg.Fat != 6 {
		t.Errorf("unexpected rounded totals: %+v", avg)
	}
}

func TestHandleCreateIgnoresClientNutrition(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"x","days":[{"meals":[{"items":[{"product_id":"6f1c1a52-0d3e-4b8a-9a51-000000000001","quantity":100,"nutrition":{"calories":9999}}]}]}]}`

	w, plan := env.create(t, "user-a", storage.RoleMember, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got := plan.Days[0].Meals[0].Items[0].Nutrition.Calories; got != 165 {
		t.Errorf("expected recomputed 165 kcal, got %v", got)
	}
	if plan.Days[0].Meals[0].Name != "Pusryčiai" {
		t.Errorf("expected default meal name, got %q", plan.Days[0].Meals[0].Name)
	}
}

func TestHandleCreateValidationSkipsStorage(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"EmptyName", `{"name":"  ","days":[]}`, "name"},
		{"NoDays", `{"name":"x","days":[]}`, "days"},
		{"DayWithoutMeals", `{"name":"x","days":[{"meals":[]}]}`, "days"},
		{"UnknownProduct", `{"name":"x","days":[{"meals":[{"items":[{"product_id":"` + uuid.NewString() + `","quantity":10}]}]}]}`, "days[0].meals[0].items[0].product_id"},
		{"NegativeQuantity", `{"name":"x","days":[{"meals":[{"items":[{"product_id":"6f1c1a52-0d3e-4b8a-9a51-000000000001","quantity":-5}]}]}]}`, "days[0].meals[0].items[0].quantity"},
		{"TooManyDays", `{"name":"x","days":[{"meals":[{}]},{"meals":[{}]},{"meals":[{}]},{"meals":[{}]}]}`, "days"},
		{"TooManyMeals", `{"name":"x","days":[{"meals":[{},{},{},{},{}]}]}`, "days[0].meals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w, _ := env.create(t, "user-a", storage.RoleMember, tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
			}
			detail := decodeError(t, w)
			if detail.Code != "validation_error" || detail.Field != tt.wantField {
				t.Errorf("expected validation_error on %q, got %+v", tt.wantField, detail)
			}
			if env.store.writes != 0 {
				t.Errorf("expected no storage writes, got %d", env.store.writes)
			}
		})
	}
}

func TestHandleCreateStorageFailures(t *testing.T) {
	t.Run("Fault", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.failWith = errors.New("connection reset")

		w, _ := env.create(t, "user-a", storage.RoleMember, chickenRicePlan)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		detail := decodeError(t, w)
		if detail.Code != "storage_error" {
			t.Errorf("expected storage_error, got %q", detail.Code)
		}
		if bytes.Contains(w.Body.Bytes(), []byte("connection reset")) {
			t.Errorf("backend detail leaked: %s", w.Body.String())
		}
	})

	t.Run("ProductRemovedMidRequest", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.failWith = fmt.Errorf("failed to insert nutrition plan items: %w", storage.ErrProductMissing)

		w, _ := env.create(t, "user-a", storage.RoleMember, chickenRicePlan)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
		if detail := decodeError(t, w); detail.Code != "product_not_found" {
			t.Errorf("expected product_not_found, got %q", detail.Code)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.stall = true

		w, _ := env.create(t, "user-a", storage.RoleMember, chickenRicePlan)
		if w.Code != http.StatusGatewayTimeout {
			t.Fatalf("expected 504, got %d", w.Code)
		}
		if detail := decodeError(t, w); detail.Code != "persist_timeout" {
			t.Errorf("expected persist_timeout, got %q", detail.Code)
		}
	})
}

func TestHandleCreatePublishingRequiresAuthor(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Public","is_published":true,"days":[{"meals":[{}]}]}`

	if w, _ := env.create(t, "user-a", storage.RoleMember, body); w.Code != http.StatusForbidden {
		t.Errorf("member publish: expected 403, got %d", w.Code)
	}
	if w, _ := env.create(t, "coach-1", storage.RoleCoach, body); w.Code != http.StatusCreated {
		t.Errorf("coach publish: expected 201, got %d", w.Code)
	}
}

func TestVisibility(t *testing.T) {
	env := newTestEnv(t)
	gold := uuid.New()
	env.memberships["gold-member"] = gold

	_, open := env.create(t, "coach-1", storage.RoleCoach, `{"name":"Open","is_published":true,"days":[{"meals":[{}]}]}`)
	_, gated := env.create(t, "coach-1", storage.RoleCoach, `{"name":"Gold","is_published":true,"membership_plan_id":"`+gold.String()+`","days":[{"meals":[{}]}]}`)
	_, private := env.create(t, "coach-1", storage.RoleCoach, `{"name":"Draft","days":[{"meals":[{}]}]}`)
	_, own := env.create(t, "basic-member", storage.RoleMember, `{"name":"Mine","days":[{"meals":[{}]}]}`)

	list := func(userID string) map[uuid.UUID]bool {
		w := httptest.NewRecorder()
		env.handler.HandleList(w, asUser(httptest.NewRequest("GET", "/v1/nutrition-plans", nil), userID, storage.RoleMember))
		var resp PlansResponse
		json.NewDecoder(w.Body).Decode(&resp)
		out := map[uuid.UUID]bool{}
		for _, p := range resp.Plans {
			out[p.ID] = true
		}
		return out
	}

	basic := list("basic-member")
	if !basic[open.ID] || !basic[own.ID] || basic[gated.ID] || basic[private.ID] {
		t.Errorf("basic member sees wrong plans: %v", basic)
	}
	goldView := list("gold-member")
	if !goldView[open.ID] || !goldView[gated.ID] || goldView[private.ID] || goldView[own.ID] {
		t.Errorf("gold member sees wrong plans: %v", goldView)
	}

	get := func(userID string, id uuid.UUID) int {
		w := httptest.NewRecorder()
		req := withID(httptest.NewRequest("GET", "/v1/nutrition-plans/"+id.String(), nil), id)
		env.handler.HandleGet(w, asUser(req, userID, storage.RoleMember))
		return w.Code
	}
	if code := get("basic-member", gated.ID); code != http.StatusForbidden {
		t.Errorf("gated plan without membership: expected 403, got %d", code)
	}
	if code := get("gold-member", gated.ID); code != http.StatusOK {
		t.Errorf("gated plan with membership: expected 200, got %d", code)
	}
	if code := get("basic-member", private.ID); code != http.StatusNotFound {
		t.Errorf("unpublished foreign plan: expected 404, got %d", code)
	}
}

func TestHandleUpdateAndDeleteOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, plan := env.create(t, "user-a", storage.RoleMember, chickenRicePlan)

	put := func(userID, role string) int {
		body := `{"name":"Renamed","days":[{"meals":[{"name":"Vakarienė"}]},{"meals":[{}]}]}`
		req := withID(httptest.NewRequest("PUT", "/", bytes.NewBufferString(body)), plan.ID)
		w := httptest.NewRecorder()
		env.handler.HandleUpdate(w, asUser(req, userID, role))
		return w.Code
	}
	if code := put("user-b", storage.RoleMember); code != http.StatusNotFound {
		t.Errorf("foreign update: expected 404, got %d", code)
	}
	if code := put("user-a", storage.RoleMember); code != http.StatusOK {
		t.Fatalf("owner update: expected 200, got %d", code)
	}

	got, err := env.service.Get(context.Background(), Caller{UserID: "user-a"}, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed" || len(got.Days) != 2 || got.Days[1].DayNumber != 2 {
		t.Errorf("expected full replace, got %+v", got)
	}
	if !got.CreatedAt.Equal(plan.CreatedAt) {
		t.Errorf("expected created_at to be preserved")
	}

	req := withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	w := httptest.NewRecorder()
	env.handler.HandleDelete(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if _, err := env.service.Get(context.Background(), Caller{UserID: "user-a"}, plan.ID); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound after delete, got %v", err)
	}
}

func TestHandleRemoveDayRenumbers(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Three","days":[
		{"meals":[{"name":"A"}]},
		{"meals":[{"name":"B"}]},
		{"meals":[{"name":"C"}]}
	]}`
	_, plan := env.create(t, "user-a", storage.RoleMember, body)

	req := withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "2")
	w := httptest.NewRecorder()
	env.handler.HandleRemoveDay(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got PlanDTO
	json.NewDecoder(w.Body).Decode(&got)
	if len(got.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got.Days))
	}
	if got.Days[0].DayNumber != 1 || got.Days[1].DayNumber != 2 || got.Days[1].Meals[0].Name != "C" {
		t.Errorf("expected days renumbered 1,2 with C second, got %+v", got.Days)
	}

	stored, _ := env.service.Get(context.Background(), Caller{UserID: "user-a"}, plan.ID)
	if len(stored.Days) != 2 {
		t.Errorf("expected removal persisted, got %d days", len(stored.Days))
	}
}

func TestHandleRemoveMealAndItem(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Meals","days":[{"meals":[
		{"name":"A","items":[{"product_id":"` + chickenID.String() + `","quantity":100},{"product_id":"` + riceID.String() + `","quantity":100}]},
		{"name":"B"}
	]}]}`
	_, plan := env.create(t, "user-a", storage.RoleMember, body)

	req := withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "1")
	req.SetPathValue("meal", "1")
	req.SetPathValue("item", "1")
	w := httptest.NewRecorder()
	env.handler.HandleRemoveItem(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusOK {
		t.Fatalf("remove item: expected 200, got %d", w.Code)
	}
	var got PlanDTO
	json.NewDecoder(w.Body).Decode(&got)
	items := got.Days[0].Meals[0].Items
	if len(items) != 1 || items[0].ProductID != riceID {
		t.Errorf("expected only rice left, got %+v", items)
	}

	req = withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "1")
	req.SetPathValue("meal", "1")
	w = httptest.NewRecorder()
	env.handler.HandleRemoveMeal(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusOK {
		t.Fatalf("remove meal: expected 200, got %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&got)
	if len(got.Days[0].Meals) != 1 || got.Days[0].Meals[0].Name != "B" || got.Days[0].Meals[0].MealNumber != 1 {
		t.Errorf("expected B renumbered to 1, got %+v", got.Days[0].Meals)
	}

	req = withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "1")
	req.SetPathValue("meal", "7")
	w = httptest.NewRecorder()
	env.handler.HandleRemoveMeal(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusNotFound {
		t.Errorf("out of range meal: expected 404, got %d", w.Code)
	}

	req = withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "zero")
	w = httptest.NewRecorder()
	env.handler.HandleRemoveDay(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid day number: expected 400, got %d", w.Code)
	}
}

func TestHandleRemoveLastMealOrDayRejected(t *testing.T) {
	env := newTestEnv(t)
	_, plan := env.create(t, "user-a", storage.RoleMember, `{"name":"Single","days":[{"meals":[{"name":"A"}]}]}`)
	writes := env.store.writes

	req := withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "1")
	req.SetPathValue("meal", "1")
	w := httptest.NewRecorder()
	env.handler.HandleRemoveMeal(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("remove last meal: expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if detail := decodeError(t, w); detail.Code != "validation_error" || detail.Field != "days" {
		t.Errorf("expected validation_error on days, got %+v", detail)
	}

	req = withID(httptest.NewRequest("DELETE", "/", nil), plan.ID)
	req.SetPathValue("day", "1")
	w = httptest.NewRecorder()
	env.handler.HandleRemoveDay(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("remove last day: expected 422, got %d: %s", w.Code, w.Body.String())
	}

	if env.store.writes != writes {
		t.Errorf("expected no storage writes, got %d", env.store.writes-writes)
	}
	stored, err := env.service.Get(context.Background(), Caller{UserID: "user-a"}, plan.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Days) != 1 || len(stored.Days[0].Meals) != 1 {
		t.Errorf("expected stored plan unchanged, got %+v", stored.Days)
	}
}

func TestHandleSummary(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Two days","days":[
		{"meals":[{"items":[{"product_id":"` + chickenID.String() + `","quantity":200}]}]},
		{"meals":[]}
	]}`
	// The second day has no meals and must be rejected; fix it with one empty meal.
	if w, _ := env.create(t, "user-a", storage.RoleMember, body); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a day without meals, got %d", w.Code)
	}
	body = `{"name":"Two days","days":[
		{"meals":[{"items":[{"product_id":"` + chickenID.String() + `","quantity":200}]}]},
		{"meals":[{}]}
	]}`
	_, plan := env.create(t, "user-a", storage.RoleMember, body)

	req := withID(httptest.NewRequest("GET", "/", nil), plan.ID)
	w := httptest.NewRecorder()
	env.handler.HandleSummary(w, asUser(req, "user-a", storage.RoleMember))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summary SummaryResponse
	json.NewDecoder(w.Body).Decode(&summary)
	if len(summary.Days) != 2 || summary.Days[0].Totals.Calories != 330 || summary.Days[1].Totals.Calories != 0 {
		t.Fatalf("unexpected day totals: %+v", summary.Days)
	}
	if summary.AveragePerDay.Calories != 165 || summary.AveragePerDay.Protein != 31 {
		t.Errorf("expected average 165 kcal / 31 g protein, got %+v", summary.AveragePerDay)
	}
}
