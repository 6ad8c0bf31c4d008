package usernutritionplans

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler handles HTTP requests for personal nutrition plans.
type Handler struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandler(service *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleCalculate handles POST /v1/user-nutrition-plans/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	targets, err := h.service.Calculate(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// HandleCreate handles POST /v1/user-nutrition-plans
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	plan, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleList handles GET /v1/user-nutrition-plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	plans, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserNutritionPlansResponse{Plans: plans})
}

// HandleGet handles GET /v1/user-nutrition-plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(userID string, id uuid.UUID) {
		plan, err := h.service.Get(r.Context(), userID, id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	})
}

// HandlePause handles POST /v1/user-nutrition-plans/{id}/pause
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(userID string, id uuid.UUID) {
		plan, err := h.service.Pause(r.Context(), userID, id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	})
}

// HandleActivate handles POST /v1/user-nutrition-plans/{id}/activate
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(userID string, id uuid.UUID) {
		plan, err := h.service.Activate(r.Context(), userID, id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	})
}

// HandleDelete handles DELETE /v1/user-nutrition-plans/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(userID string, id uuid.UUID) {
		if err := h.service.Delete(r.Context(), userID, id); err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) withPlan(w http.ResponseWriter, r *http.Request, fn func(userID string, id uuid.UUID)) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid plan ID")
		return
	}
	fn(userID, id)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "User nutrition plan not found")
	default:
		h.logger.WithError(err).Error("user nutrition plan request failed")
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
