package exports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/fitclub/internal/blob"
	appcfg "github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidFormat  = errors.New("invalid format")
	ErrExportNotFound = errors.New("export not found")
	ErrPlanTooLarge   = errors.New("plan has too many days to export")
)

// PlanReader loads a plan the caller is allowed to see.
type PlanReader interface {
	Get(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID) (*nutritionplans.PlanDTO, error)
}

// Options configures the export service.
type Options struct {
	Storage         storage.ExportsStorage
	Plans           PlanReader
	Blob            blob.Store
	Mode            string // effective blob mode: local or s3
	PresignTTL      int
	PublicBaseURL   string
	PreferPublicURL bool
	MaxDays         int
	Metrics         *metrics.Metrics
	Logger          logrus.FieldLogger
}

// Service renders nutrition plans to PDF/CSV and keeps them in the blob store.
type Service struct {
	opts Options
}

func NewService(opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = appcfg.BlobModeLocal
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 900
	}
	return &Service{opts: opts}
}

// LocalMode reports whether downloads are served by the API itself.
func (s *Service) LocalMode() bool {
	return s.opts.Mode != appcfg.BlobModeS3
}

// Create renders the plan and uploads the result.
func (s *Service) Create(ctx context.Context, caller nutritionplans.Caller, planID uuid.UUID, format string) (*storage.ExportMeta, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatPDF && format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	plan, err := s.opts.Plans.Get(ctx, caller, planID)
	if err != nil {
		return nil, err
	}
	if s.opts.MaxDays > 0 && len(plan.Days) > s.opts.MaxDays {
		return nil, ErrPlanTooLarge
	}

	data, err := Render(plan, format)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	id := uuid.New()
	key := fmt.Sprintf("exports/%s/%s/%s.%s", caller.UserID, planID, id, format)
	size, err := s.opts.Blob.PutObject(ctx, key, data, contentType(format))
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	meta := &storage.ExportMeta{
		ID:          id,
		OwnerUserID: caller.UserID,
		PlanID:      planID,
		Format:      format,
		ObjectKey:   &key,
		SizeBytes:   size,
		Status:      StatusReady,
	}
	if err := s.opts.Storage.CreateExport(ctx, meta); err != nil {
		if derr := s.opts.Blob.DeleteObject(ctx, key); derr != nil {
			s.opts.Logger.WithError(derr).WithField("object_key", key).Warn("failed to remove orphaned export object")
		}
		return nil, fmt.Errorf("failed to save export metadata: %w", err)
	}

	s.opts.Metrics.ExportGenerated(format)
	s.opts.Logger.WithFields(logrus.Fields{
		"export_id": id,
		"plan_id":   planID,
		"format":    format,
		"size":      size,
	}).Info("plan export created")
	return meta, nil
}

// Get returns an export owned by userID.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*storage.ExportMeta, error) {
	meta, err := s.opts.Storage.GetExport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	if meta.OwnerUserID != userID {
		return nil, ErrExportNotFound
	}
	return meta, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]storage.ExportMeta, error) {
	list, err := s.opts.Storage.ListExports(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return list, nil
}

// Delete removes the metadata and, best effort, the object.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	meta, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if meta.ObjectKey != nil {
		if err := s.opts.Blob.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			s.opts.Logger.WithError(err).WithField("export_id", id).Warn("failed to delete export object")
		}
	}
	if err := s.opts.Storage.DeleteExport(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrExportNotFound
		}
		return fmt.Errorf("failed to delete export metadata: %w", err)
	}
	return nil
}

// DownloadURL returns where the client should fetch the export from.
func (s *Service) DownloadURL(ctx context.Context, meta *storage.ExportMeta, baseURL string) (string, error) {
	if s.LocalMode() {
		return fmt.Sprintf("%s/v1/exports/%s/download", strings.TrimSuffix(baseURL, "/"), meta.ID), nil
	}
	if meta.ObjectKey == nil {
		return "", fmt.Errorf("object key is missing")
	}
	if s.opts.PreferPublicURL && s.opts.PublicBaseURL != "" {
		return strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + *meta.ObjectKey, nil
	}
	u, err := s.opts.Blob.PresignGet(ctx, *meta.ObjectKey, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u, nil
}

// Data reads the rendered bytes from the blob store.
func (s *Service) Data(ctx context.Context, meta *storage.ExportMeta) ([]byte, error) {
	if meta.ObjectKey == nil {
		return nil, ErrExportNotFound
	}
	data, err := s.opts.Blob.GetObject(ctx, *meta.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return data, nil
}
