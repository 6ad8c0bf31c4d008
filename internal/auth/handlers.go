package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

type Handlers struct {
	service *Service
	logger  logrus.FieldLogger
}

func NewHandlers(service *Service, logger logrus.FieldLogger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// HandleDevAuth handles POST /v1/auth/dev
func (h *Handlers) HandleDevAuth(w http.ResponseWriter, r *http.Request) {
	if !h.service.config.AuthDevLogin {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "dev login is disabled")
		return
	}

	var req DevAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.SignInDev(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			writeErrorResponse(w, http.StatusBadRequest, "invalid_email", "email is invalid")
		case errors.Is(err, ErrInvalidRole):
			writeErrorResponse(w, http.StatusBadRequest, "invalid_role", "role must be member, coach or admin")
		default:
			h.logger.WithError(err).Error("dev sign-in failed")
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		}
		return
	}

	h.logger.WithFields(logrus.Fields{"user_id": resp.UserID, "role": resp.Role}).Info("dev sign-in")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
