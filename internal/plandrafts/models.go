package plandrafts

import (
	"time"

	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/google/uuid"
)

// Operation names accepted by POST /v1/plan-drafts/{id}/ops.
const (
	OpAddDay     = "add_day"
	OpRemoveDay  = "remove_day"
	OpAddMeal    = "add_meal"
	OpRemoveMeal = "remove_meal"
	OpRenameMeal = "rename_meal"
	OpAddItem    = "add_item"
	OpUpdateItem = "update_item"
	OpRemoveItem = "remove_item"
	OpSelect     = "select"
	OpRenamePlan = "rename_plan"
)

// CreateDraftRequest — POST /v1/plan-drafts; plan_id открывает сохранённый план
type CreateDraftRequest struct {
	PlanID *uuid.UUID `json:"plan_id"`
	Name   string     `json:"name"`
}

// OpRequest — одна операция редактора. Индексы с нуля; пропущенный
// индекс дня или приёма пищи берётся из текущего выбора.
type OpRequest struct {
	Op          string     `json:"op"`
	DayIndex    *int       `json:"day_index"`
	MealIndex   *int       `json:"meal_index"`
	ItemIndex   *int       `json:"item_index"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ProductID   *uuid.UUID `json:"product_id"`
	Quantity    *float64   `json:"quantity"`
}

// DraftDTO — состояние черновика с итогами
type DraftDTO struct {
	ID         uuid.UUID          `json:"id"`
	PlanID     *uuid.UUID         `json:"plan_id,omitempty"`
	Plan       planeditor.Plan    `json:"plan"`
	ActiveDay  int                `json:"active_day"`
	ActiveMeal int                `json:"active_meal"`
	Totals     planeditor.Summary `json:"totals"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
