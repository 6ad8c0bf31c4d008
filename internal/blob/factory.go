package blob

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/fdg312/fitclub/internal/config"
	"github.com/sirupsen/logrus"
)

// NewBlobStore builds the export store for mode local|s3|auto and returns the
// mode actually in effect. auto falls back to local when S3 is incomplete.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger logrus.FieldLogger) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}
	log := logger.WithField("component", "blob")

	switch mode {
	case appcfg.BlobModeLocal:
		log.WithField("mode", mode).Info("blob store: local (forced)")
		return NewMemoryStore(), appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			level, code, msg := cfg.S3.Diagnostics()
			entry := log.WithFields(logrus.Fields(cfg.S3.Fields())).WithField("code", code)
			if level == "warn" {
				entry.Warn(msg)
			} else {
				entry.Info(msg)
			}
			log.WithField("mode", appcfg.BlobModeLocal).Info("blob store: local (auto, S3 not configured)")
			return NewMemoryStore(), appcfg.BlobModeLocal, nil
		}

		store, err := newS3(ctx, cfg.S3)
		if err != nil {
			log.WithError(err).Warn("blob store: S3 init failed, falling back to local")
			return NewMemoryStore(), appcfg.BlobModeLocal, nil
		}
		log.WithFields(logrus.Fields(cfg.S3.Fields())).Info("blob store: s3 (auto, configured)")
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			log.WithField("missing", missing).Error("blob store: s3 config incomplete")
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := newS3(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}
		log.WithFields(logrus.Fields(cfg.S3.Fields())).Info("blob store: s3 (forced)")
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func newS3(ctx context.Context, c appcfg.S3Config) (*S3Store, error) {
	return NewS3Store(ctx, c.Endpoint, c.Region, c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}
