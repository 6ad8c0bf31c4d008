package nutritionplans

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler содержит HTTP обработчики планов питания
type Handler struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandler(service *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CallerFromRequest собирает Caller из контекста запроса
func CallerFromRequest(r *http.Request) (Caller, bool) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		return Caller{}, false
	}
	return Caller{UserID: userID, Role: userctx.GetRole(r.Context())}, true
}

// HandleList обрабатывает GET /v1/nutrition-plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	plans, err := h.service.List(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlansResponse{Plans: plans})
}

// HandleCreate обрабатывает POST /v1/nutrition-plans
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	plan, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleGet обрабатывает GET /v1/nutrition-plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	plan, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleSummary обрабатывает GET /v1/nutrition-plans/{id}/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleUpdate обрабатывает PUT /v1/nutrition-plans/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	plan, err := h.service.Update(r.Context(), caller, id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleDelete обрабатывает DELETE /v1/nutrition-plans/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveDay обрабатывает DELETE /v1/nutrition-plans/{id}/days/{day}
func (h *Handler) HandleRemoveDay(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	nums, ok := pathNumbers(w, r, "day")
	if !ok {
		return
	}

	plan, err := h.service.RemoveDay(r.Context(), caller, id, nums[0])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleRemoveMeal обрабатывает DELETE /v1/nutrition-plans/{id}/days/{day}/meals/{meal}
func (h *Handler) HandleRemoveMeal(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	nums, ok := pathNumbers(w, r, "day", "meal")
	if !ok {
		return
	}

	plan, err := h.service.RemoveMeal(r.Context(), caller, id, nums[0], nums[1])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleRemoveItem обрабатывает DELETE /v1/nutrition-plans/{id}/days/{day}/meals/{meal}/items/{item}
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	nums, ok := pathNumbers(w, r, "day", "meal", "item")
	if !ok {
		return
	}

	plan, err := h.service.RemoveItem(r.Context(), caller, id, nums[0], nums[1], nums[2])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) callerAndID(w http.ResponseWriter, r *http.Request) (Caller, uuid.UUID, bool) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid nutrition plan ID")
		return Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

// pathNumbers разбирает 1-based номера из пути
func pathNumbers(w http.ResponseWriter, r *http.Request, names ...string) ([]int, bool) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		n, err := strconv.Atoi(r.PathValue(name))
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive number")
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// WriteError maps service errors to the JSON envelope. Shared with plan drafts.
func WriteError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    "validation_error",
			Message: ve.Message,
			Field:   ve.Field,
		}})
	case errors.Is(err, ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Nutrition plan not found")
	case errors.Is(err, ErrProductNotFound):
		writeError(w, http.StatusUnprocessableEntity, "product_not_found", "Food product not found")
	case errors.Is(err, ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "position_not_found", "Day, meal or item not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Not allowed to modify this nutrition plan")
	case errors.Is(err, ErrMembershipRequired):
		writeError(w, http.StatusForbidden, "membership_required", "This nutrition plan requires a membership")
	case errors.Is(err, ErrPersistTimeout):
		writeError(w, http.StatusGatewayTimeout, "persist_timeout", "Saving took too long, please retry")
	default:
		var se *StorageError
		if errors.As(err, &se) {
			writeError(w, http.StatusInternalServerError, "storage_error", "Failed to save nutrition plan")
			return
		}
		logger.WithError(err).Error("nutrition plans request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	WriteError(w, h.logger, err)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
