package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"noteflow/internal/domain"
)

const minSecretLen = 32

// Validate checks business rules on the loaded configuration and reports
// every offending field at once.
func (c *Config) Validate() error {
	var errs []domain.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, domain.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		add("data_dir", "required")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.File == "" {
			add("store.file", "required for the sqlite driver")
		}
	case "memory":
	default:
		add("store.driver", "must be sqlite or memory (got %q)", c.Store.Driver)
	}

	if c.Session.IdleTimeout < 0 {
		add("session.idle_timeout", "must not be negative")
	}

	if len(c.Auth.JWTSecret) < minSecretLen {
		add("auth.jwt_secret", "must be at least %d characters (got %d)", minSecretLen, len(c.Auth.JWTSecret))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be debug, info, warn or error (got %q)", c.Log.Level)
	}

	switch c.Media.Backend {
	case "local":
	case "s3":
		if !c.Media.S3.Enabled() {
			add("media.s3", "bucket, access_key and secret_key are required for the s3 backend")
		}
	default:
		add("media.backend", "must be local or s3 (got %q)", c.Media.Backend)
	}

	if c.Transcription.Timeout <= 0 {
		add("transcription.timeout", "must be positive")
	}
	if c.AI.Timeout <= 0 {
		add("ai.timeout", "must be positive")
	}

	if c.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			add("backup.schedule", "invalid cron spec: %v", err)
		}
		if !c.Backup.WebDAV.Enabled() && !c.Backup.S3.Enabled() {
			add("backup", "a schedule needs a webdav or s3 target")
		}
	}
	if c.Backup.Keep < 0 {
		add("backup.keep", "must be >= 0 (got %d)", c.Backup.Keep)
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
