package plandrafts

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler содержит HTTP обработчики черновиков планов
type Handler struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandler(service *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleCreate обрабатывает POST /v1/plan-drafts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := nutritionplans.CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	draft, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

// HandleGet обрабатывает GET /v1/plan-drafts/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	draft, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// HandleApply обрабатывает POST /v1/plan-drafts/{id}/ops
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req OpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	draft, err := h.service.Apply(r.Context(), caller, id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// HandleSubmit обрабатывает POST /v1/plan-drafts/{id}/submit
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	plan, created, err := h.service.Submit(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, plan)
}

// HandleDiscard обрабатывает DELETE /v1/plan-drafts/{id}
func (h *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Discard(r.Context(), caller, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) callerAndID(w http.ResponseWriter, r *http.Request) (nutritionplans.Caller, uuid.UUID, bool) {
	caller, ok := nutritionplans.CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return nutritionplans.Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid draft ID")
		return nutritionplans.Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDraftNotFound):
		writeError(w, http.StatusNotFound, "draft_not_found", "Plan draft not found or expired")
	case errors.Is(err, ErrUnknownOp), errors.Is(err, ErrInvalidOp):
		writeError(w, http.StatusBadRequest, "invalid_op", err.Error())
	case errors.Is(err, ErrLimitReached):
		writeError(w, http.StatusUnprocessableEntity, "limit_reached", err.Error())
	case errors.Is(err, planeditor.ErrIndexOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, "index_out_of_range", "Day, meal or item index is out of range")
	case errors.Is(err, planeditor.ErrProductNotFound):
		writeError(w, http.StatusUnprocessableEntity, "product_not_found", "Food product not found")
	default:
		nutritionplans.WriteError(w, h.logger, err)
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
