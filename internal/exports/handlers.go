package exports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handlers handles HTTP requests for plan exports
type Handlers struct {
	service *Service
	perPage int
	logger  logrus.FieldLogger
}

func NewHandlers(service *Service, perPage int, logger logrus.FieldLogger) *Handlers {
	if perPage <= 0 {
		perPage = 50
	}
	return &Handlers{service: service, perPage: perPage, logger: logger}
}

// HandleCreate handles POST /v1/nutrition-plans/{id}/exports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := nutritionplans.CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	planID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid plan ID")
		return
	}

	var req CreateExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	meta, err := h.service.Create(r.Context(), caller, planID, req.Format)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dto, err := h.toDTO(r, meta)
	if err != nil {
		h.logger.WithError(err).Error("failed to build download URL")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// HandleList handles GET /v1/exports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := nutritionplans.CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	limit := h.perPage
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= h.perPage {
			limit = l
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			offset = o
		}
	}

	list, err := h.service.List(r.Context(), caller.UserID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]ExportDTO, 0, len(list))
	for i := range list {
		dto, err := h.toDTO(r, &list[i])
		if err != nil {
			h.logger.WithError(err).WithField("export_id", list[i].ID).Warn("failed to build download URL")
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, ExportsResponse{Exports: dtos})
}

// HandleDownload handles GET /v1/exports/{id}/download. Local mode streams
// the bytes; S3 mode redirects to a presigned or public URL.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	meta, err := h.service.Get(r.Context(), caller.UserID, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if !h.service.LocalMode() {
		u, err := h.service.DownloadURL(r.Context(), meta, getBaseURL(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
		return
	}

	data, err := h.service.Data(r.Context(), meta)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	filename := fmt.Sprintf("nutrition_plan_%s.%s", meta.PlanID, meta.Format)
	w.Header().Set("Content-Type", contentType(meta.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// HandleDelete handles DELETE /v1/exports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), caller.UserID, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) callerAndID(w http.ResponseWriter, r *http.Request) (nutritionplans.Caller, uuid.UUID, bool) {
	caller, ok := nutritionplans.CallerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return caller, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid export ID")
		return caller, uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handlers) toDTO(r *http.Request, meta *storage.ExportMeta) (ExportDTO, error) {
	u, err := h.service.DownloadURL(r.Context(), meta, getBaseURL(r))
	return ExportDTO{
		ID:          meta.ID,
		PlanID:      meta.PlanID,
		Format:      meta.Format,
		DownloadURL: u,
		SizeBytes:   meta.SizeBytes,
		Status:      meta.Status,
		CreatedAt:   meta.CreatedAt,
	}, err
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
	case errors.Is(err, ErrPlanTooLarge):
		writeError(w, http.StatusUnprocessableEntity, "plan_too_large", err.Error())
	case errors.Is(err, ErrExportNotFound):
		writeError(w, http.StatusNotFound, "export_not_found", "Export not found")
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

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
