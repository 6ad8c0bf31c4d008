package foodproducts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fdg312/fitclub/internal/userctx"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler содержит HTTP обработчики каталога продуктов
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
	return Caller{UserID: userID, IsAdmin: userctx.IsAdmin(r.Context())}, true
}

// HandleList обрабатывает GET /v1/food-products?q=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	products, err := h.service.List(r.Context(), caller, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FoodProductsResponse{Products: products})
}

// HandleGet обрабатывает GET /v1/food-products/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	product, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// HandleCreate обрабатывает POST /v1/food-products
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req FoodProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	product, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// HandleUpdate обрабатывает PUT /v1/food-products/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req FoodProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	product, err := h.service.Update(r.Context(), caller, id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// HandleDelete обрабатывает DELETE /v1/food-products/{id}
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

func (h *Handler) callerAndID(w http.ResponseWriter, r *http.Request) (Caller, uuid.UUID, bool) {
	caller, ok := CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid food product ID")
		return Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Food product not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Not allowed to modify this food product")
	case errors.Is(err, ErrInUse):
		writeError(w, http.StatusConflict, "product_in_use", "Food product is used by a nutrition plan")
	default:
		h.logger.WithError(err).Error("food products request failed")
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
