package exports

import (
	"time"

	"github.com/google/uuid"
)

// Formats
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"

	StatusReady = "ready"
)

// CreateExportRequest is the body of POST /v1/nutrition-plans/{id}/exports
type CreateExportRequest struct {
	Format string `json:"format"` // "pdf" or "csv"
}

// ExportDTO is the response representation of an export
type ExportDTO struct {
	ID          uuid.UUID `json:"id"`
	PlanID      uuid.UUID `json:"plan_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportsResponse is the list response
type ExportsResponse struct {
	Exports []ExportDTO `json:"exports"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func contentType(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
