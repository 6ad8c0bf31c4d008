package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/dbmigrate"
	"github.com/fdg312/fitclub/internal/httpserver"
	"github.com/fdg312/fitclub/internal/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	printStartupBanner(logger, cfg)
	validateConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		sel, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			logger.WithError(err).Fatal("startup migrations")
		}

		logger.WithField("using", sel.Source).Info("startup migrations: command=up")
		if err := dbmigrate.Run(ctx, "up", sel.URL, dbmigrate.Options{Logger: logger}); err != nil {
			logger.WithError(err).Fatal("startup migrations failed")
		}
		logger.Info("startup migrations: completed")
	}

	srv, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printStartupBanner logs the resolved configuration once. Secrets are
// reported only as "set" / "not set".
func printStartupBanner(logger logrus.FieldLogger, cfg *config.Config) {
	logger.WithFields(logrus.Fields{
		"env":         cfg.Env,
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"log_format":  cfg.LogFormat,
		"cors":        strings.Join(cfg.CORSAllowedOrigins, ","),
		"rate_limit":  cfg.RateLimitRPS,
		"rate_burst":  cfg.RateLimitBurst,
		"trust_proxy": cfg.TrustProxy,
		"export_days": cfg.ExportMaxDays,
	}).Info("fitclub api starting")

	logger.WithFields(logrus.Fields{
		"runtime_url":           describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled),
		"pooled":                setOrNot(cfg.DatabaseURLPooled),
		"direct":                setOrNot(cfg.DatabaseURLDirect),
		"migrations_on_startup": cfg.RunMigrationsOnStartup,
	}).Info("database")

	logger.WithFields(logrus.Fields{
		"auth_required":  cfg.AuthRequired,
		"dev_login":      cfg.AuthDevLogin,
		"jwt_secret":     secretStatus(cfg.JWTSecret, "change_me"),
		"jwt_ttl_min":    cfg.JWTTTLMinutes,
		"default_userid": nonEmptyOrDash(cfg.DefaultUserID),
	}).Info("auth")

	logger.WithFields(logrus.Fields{
		"persist_timeout": cfg.PersistTimeout,
		"draft_ttl":       cfg.DraftTTL,
		"max_days":        cfg.MaxPlanDays,
		"max_meals":       cfg.MaxMealsPerDay,
		"max_items":       cfg.MaxItemsPerMeal,
	}).Info("nutrition plans")

	blob := logger.WithField("blob_mode", cfg.Blob.Mode)
	if cfg.Blob.Mode != config.BlobModeLocal {
		blob = blob.WithFields(logrus.Fields(cfg.Blob.S3.Fields()))
	}
	blob.Info("blob")
}

// validateConfig stops the process on settings that cannot work.
func validateConfig(logger logrus.FieldLogger, cfg *config.Config) {
	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			logger.WithField("missing", strings.Join(missing, ", ")).
				Fatal("BLOB_MODE=s3 but S3 config is incomplete")
		}
	}

	if err := cfg.ValidateProduction(); err != nil {
		logger.WithError(err).Fatal("invalid production config")
	}
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return "set (insecure default)"
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
