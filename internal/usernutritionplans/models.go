package usernutritionplans

import (
	"time"

	"github.com/google/uuid"
)

// CalculateRequest — входные данные калькулятора
type CalculateRequest struct {
	Goal          string  `json:"goal"`
	ActivityLevel string  `json:"activity_level"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
}

// UserNutritionPlanDTO — сохранённый персональный план
type UserNutritionPlanDTO struct {
	ID uuid.UUID `json:"id"`
	CalculateRequest
	Targets
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserNutritionPlansResponse struct {
	Plans []UserNutritionPlanDTO `json:"plans"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
