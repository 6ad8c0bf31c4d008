package memberships

import (
	"time"

	"github.com/google/uuid"
)

// MembershipPlanDTO — тариф клуба
type MembershipPlanDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents"`
	Currency     string    `json:"currency"`
	DurationDays int       `json:"duration_days"`
	Features     Features  `json:"features"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MembershipPlanRequest — тело POST и PUT /v1/memberships
type MembershipPlanRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PriceCents   int64    `json:"price_cents"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"duration_days"`
	Features     Features `json:"features"`
	IsActive     *bool    `json:"is_active"`
}

type MembershipPlansResponse struct {
	Plans []MembershipPlanDTO `json:"plans"`
}

// SubscriptionDTO — результат POST /v1/memberships/{id}/subscribe.
// Оплата не проводится, фиксируется только выбор тарифа.
type SubscriptionDTO struct {
	MemberID         string     `json:"member_id"`
	MembershipPlanID uuid.UUID  `json:"membership_plan_id"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	PaymentStatus    string     `json:"payment_status"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
