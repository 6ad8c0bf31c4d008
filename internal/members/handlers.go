package members

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/sirupsen/logrus"
)

// Handler содержит HTTP обработчики для участников
type Handler struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandler(service *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleGetMe обрабатывает GET /v1/me
func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	me, err := h.service.Me(r.Context(), userID, userctx.GetRole(r.Context()))
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("get member failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HandlePatchMe обрабатывает PATCH /v1/me
func (h *Handler) HandlePatchMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	me, err := h.service.UpdateName(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HandleList обрабатывает GET /v1/admin/members?limit=&offset=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	resp, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSetRole обрабатывает PUT /v1/admin/members/{id}/role
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	memberID := strings.TrimSpace(r.PathValue("id"))
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "Member id is required")
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	member, err := h.service.SetRole(r.Context(), memberID, req.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	actor, _ := userctx.GetUserID(r.Context())
	h.logger.WithFields(logrus.Fields{
		"user_id":   actor,
		"member_id": member.ID,
		"role":      member.Role,
	}).Info("member role changed")
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Member not found")
	case errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, "empty_name", "Name cannot be empty")
	case errors.Is(err, ErrNameTooLong):
		writeError(w, http.StatusBadRequest, "name_too_long", "Name is too long")
	case errors.Is(err, ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role", "Role must be member, coach or admin")
	default:
		h.logger.WithError(err).Error("members request failed")
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
