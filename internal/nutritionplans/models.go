package nutritionplans

import (
	"time"

	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/google/uuid"
)

// PlanRequest — тело POST и PUT /v1/nutrition-plans.
// Значения питательности от клиента не принимаются.
type PlanRequest struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Days             []DayInput `json:"days"`
	IsPublished      bool       `json:"is_published"`
	IsSystem         bool       `json:"is_system"`
	MembershipPlanID *uuid.UUID `json:"membership_plan_id"`
}

type DayInput struct {
	Meals []MealInput `json:"meals"`
}

type MealInput struct {
	Name  string      `json:"name"`
	Items []ItemInput `json:"items"`
}

type ItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  float64   `json:"quantity"`
}

// PlanDTO — план с деревом и округлёнными итогами
type PlanDTO struct {
	ID               uuid.UUID          `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	OwnerUserID      string             `json:"owner_user_id"`
	IsSystem         bool               `json:"is_system"`
	IsPublished      bool               `json:"is_published"`
	MembershipPlanID *uuid.UUID         `json:"membership_plan_id,omitempty"`
	Days             []planeditor.Day   `json:"days"`
	Totals           planeditor.Summary `json:"totals"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PlanHeaderDTO — элемент списка, без дерева
type PlanHeaderDTO struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	OwnerUserID      string     `json:"owner_user_id"`
	IsSystem         bool       `json:"is_system"`
	IsPublished      bool       `json:"is_published"`
	MembershipPlanID *uuid.UUID `json:"membership_plan_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type PlansResponse struct {
	Plans []PlanHeaderDTO `json:"plans"`
}

// SummaryResponse — GET /v1/nutrition-plans/{id}/summary
type SummaryResponse struct {
	PlanID uuid.UUID `json:"plan_id"`
	Name   string    `json:"name"`
	planeditor.Summary
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
