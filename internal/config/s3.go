package config

import (
	"fmt"
	"strings"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

// S3Config describes the object storage used for plan exports.
type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string // optional; enables direct links with PreferPublicURL
	PresignTTLSeconds int
	PreferPublicURL   bool
}

// MissingRequired lists the env keys that must be set before S3 can be used.
func (c S3Config) MissingRequired() []string {
	required := []struct {
		key, val string
	}{
		{"S3_ENDPOINT", c.Endpoint},
		{"S3_REGION", c.Region},
		{"S3_BUCKET", c.Bucket},
		{"S3_ACCESS_KEY_ID", c.AccessKeyID},
		{"S3_SECRET_ACCESS_KEY", c.SecretAccessKey},
	}
	missing := make([]string, 0, len(required))
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	if c.PreferPublicURL && strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) isEmpty() bool {
	return strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == ""
}

// Diagnostics classifies the S3 setup for the startup log.
func (c S3Config) Diagnostics() (level string, code string, msg string) {
	if c.isEmpty() {
		return "info", "s3_not_configured", "not configured (all empty)"
	}
	if missing := c.MissingRequired(); len(missing) > 0 {
		return "warn", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}
	return "info", "s3_ready", "ready"
}

// Fields returns a secret-free view of the config for structured logging.
func (c S3Config) Fields() map[string]any {
	return map[string]any{
		"endpoint":          nonEmptyOrDash(c.Endpoint),
		"region":            nonEmptyOrDash(c.Region),
		"bucket":            nonEmptyOrDash(c.Bucket),
		"public_base_url":   nonEmptyOrDash(c.PublicBaseURL),
		"presign_ttl":       c.PresignTTLSeconds,
		"prefer_public_url": c.PreferPublicURL,
		"access_key_id":     setOrNot(c.AccessKeyID),
		"secret_access_key": setOrNot(c.SecretAccessKey),
	}
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}
