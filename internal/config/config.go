package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const defaultJWTSecret = "change_me"

// BlobConfig selects where plan exports are stored.
type BlobConfig struct {
	Mode string // local|s3|auto
	S3   S3Config
}

// Config holds the application configuration loaded from the environment.
type Config struct {
	Env       string // local | staging | prod
	Port      int
	LogLevel  string
	LogFormat string // text | json

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	RunMigrationsOnStartup bool

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
	TrustProxy     bool // honour X-Forwarded-For / X-Real-IP from a reverse proxy

	// Auth
	AuthRequired  bool
	AuthDevLogin  bool
	DefaultUserID string // used when AuthRequired is false and no token is sent
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// Nutrition plans
	PersistTimeout     time.Duration
	DraftTTL           time.Duration
	DraftSweepInterval time.Duration
	MaxPlanDays        int
	MaxMealsPerDay     int
	MaxItemsPerMeal    int

	// Exports
	Blob           BlobConfig
	ExportMaxDays  int
	ExportsPerPage int

	// Warnings collected while loading; logged by the caller once a logger exists.
	Warnings []string
}

// Load reads the configuration from environment variables.
func Load() *Config {
	cfg := &Config{}

	cfg.Env = envString("APP_ENV", envString("ENV", "local"))
	cfg.Port = envInt("PORT", 8080)
	cfg.LogLevel = strings.ToLower(envString("LOG_LEVEL", "debug"))
	cfg.LogFormat = strings.ToLower(envString("LOG_FORMAT", defaultLogFormat(cfg.Env)))

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	cfg.DatabaseURLPooled = strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	cfg.DatabaseURLRaw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.DatabaseURLDirect = strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))
	cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURLPooled, cfg.DatabaseURLRaw, cfg.DatabaseURLDirect)
	cfg.RunMigrationsOnStartup = parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	// ---------- CORS ----------
	cfg.CORSAllowedOrigins = parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), cfg.Env)
	cfg.CORSAllowCredentials = parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Rate limiting ----------
	cfg.RateLimitRPS = envInt("RATE_LIMIT_RPS", 0)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", 0)
	cfg.TrustProxy = envBool("TRUST_PROXY", false)

	// ---------- Auth ----------
	cfg.AuthRequired = envBool("AUTH_REQUIRED", cfg.Env != "local")
	cfg.AuthDevLogin = envBool("AUTH_DEV_LOGIN", cfg.Env == "local")
	cfg.DefaultUserID = envString("DEFAULT_USER_ID", "default")
	cfg.JWTSecret = envString("JWT_SECRET", defaultJWTSecret)
	if cfg.JWTSecret == defaultJWTSecret && cfg.Env != "local" {
		cfg.warnf("JWT_SECRET is set to %q in non-local environment", defaultJWTSecret)
	}
	cfg.JWTIssuer = envString("JWT_ISSUER", "fitclub")
	cfg.JWTTTLMinutes = envPositiveInt("JWT_TTL_MINUTES", 10080)

	// ---------- Nutrition plans ----------
	cfg.PersistTimeout = time.Duration(envPositiveInt("PERSIST_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.DraftTTL = time.Duration(envPositiveInt("DRAFT_TTL_MINUTES", 120)) * time.Minute
	cfg.DraftSweepInterval = time.Duration(envPositiveInt("DRAFT_SWEEP_SECONDS", 60)) * time.Second
	cfg.MaxPlanDays = envPositiveInt("PLAN_MAX_DAYS", 31)
	cfg.MaxMealsPerDay = envPositiveInt("PLAN_MAX_MEALS_PER_DAY", 12)
	cfg.MaxItemsPerMeal = envPositiveInt("PLAN_MAX_ITEMS_PER_MEAL", 50)

	// ---------- Blob / S3 ----------
	cfg.Blob = BlobConfig{
		Mode: cfg.parseBlobMode("BLOB_MODE", BlobModeLocal),
		S3: S3Config{
			Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
			Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
			PublicBaseURL:     strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")),
			PresignTTLSeconds: envPositiveInt("S3_PRESIGN_TTL_SECONDS", 900),
			PreferPublicURL:   parseBoolEnv("S3_PREFER_PUBLIC_URL"),
		},
	}
	cfg.ExportMaxDays = envPositiveInt("EXPORT_MAX_DAYS", 31)
	cfg.ExportsPerPage = envPositiveInt("EXPORTS_PER_PAGE", 50)

	return cfg
}

// ValidateProduction returns an error for settings that must never reach prod.
func (c *Config) ValidateProduction() error {
	if c.Env != "prod" && c.Env != "production" {
		return nil
	}
	if c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if !c.AuthRequired {
		return fmt.Errorf("AUTH_REQUIRED must be enabled in production")
	}
	if c.AuthDevLogin {
		return fmt.Errorf("AUTH_DEV_LOGIN must be disabled in production")
	}
	return nil
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) parseBlobMode(key string, defaultVal string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	switch mode {
	case BlobModeLocal, BlobModeS3, BlobModeAuto:
		return mode
	default:
		c.warnf("unknown %s=%q, fallback to %s", key, mode, defaultVal)
		return defaultVal
	}
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}
	return splitList(raw)
}

func defaultLogFormat(env string) string {
	if env == "local" {
		return "text"
	}
	return "json"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
