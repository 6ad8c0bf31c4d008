package members

import (
	"time"

	"github.com/google/uuid"
)

// MemberDTO — участник клуба в ответах API
type MemberDTO struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Role                string     `json:"role"`
	MembershipPlanID    *uuid.UUID `json:"membership_plan_id,omitempty"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
	MembershipActive    bool       `json:"membership_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UpdateMeRequest — PATCH /v1/me
type UpdateMeRequest struct {
	Name *string `json:"name"`
}

// UpdateRoleRequest — PUT /v1/admin/members/{id}/role
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// MembersResponse — GET /v1/admin/members
type MembersResponse struct {
	Members []MemberDTO `json:"members"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
