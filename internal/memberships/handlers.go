package memberships

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler содержит HTTP обработчики тарифов
type Handler struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandler(service *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleList обрабатывает GET /v1/memberships (публичный; ?all=1 для админов)
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	includeInactive := userctx.IsAdmin(r.Context()) && r.URL.Query().Get("all") == "1"

	plans, err := h.service.List(r.Context(), includeInactive)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MembershipPlansResponse{Plans: plans})
}

// HandleGet обрабатывает GET /v1/memberships/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	plan, err := h.service.Get(r.Context(), id, userctx.IsAdmin(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleCreate обрабатывает POST /v1/memberships (admin)
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req MembershipPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	plan, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleUpdate обрабатывает PUT /v1/memberships/{id} (admin)
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req MembershipPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	plan, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleSubscribe обрабатывает POST /v1/memberships/{id}/subscribe
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid membership plan ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Membership plan not found")
	case errors.Is(err, ErrInactive):
		writeError(w, http.StatusConflict, "membership_inactive", "Membership plan is not available")
	case errors.Is(err, ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "member_not_found", "Sign in before subscribing")
	default:
		h.logger.WithError(err).Error("memberships request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
