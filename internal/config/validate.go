package config

import (
	"fmt"
	"strings"

	"github.com/rrrhhh38/phytiumpi-project/internal/observability"
)

// ValidationError reports an invalid config value.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Key + ": " + e.Message
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Key: "server.port", Message: fmt.Sprintf("%d is out of range", c.Server.Port)}
	}
	if c.Server.RateLimit < 0 {
		return &ValidationError{Key: "server.rate_limit", Message: "must not be negative"}
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return &ValidationError{Key: "server.rate_burst", Message: "must be at least 1 when rate limiting is enabled"}
	}
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return &ValidationError{Key: "logging.level", Message: err.Error()}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", observability.FormatJSON, observability.FormatConsole:
	default:
		return &ValidationError{Key: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	if c.Readiness.ImageGlob == "" && strings.TrimSpace(c.Readiness.ImagePath) == "" {
		return &ValidationError{Key: "readiness.image_path", Message: "required when readiness.image_glob is empty"}
	}
	if strings.TrimSpace(c.Readiness.WeightPath) == "" {
		return &ValidationError{Key: "readiness.weight_path", Message: "is required"}
	}
	if c.Readiness.PollInterval <= 0 {
		return &ValidationError{Key: "readiness.poll_interval", Message: "must be positive"}
	}
	if c.Readiness.Timeout <= 0 {
		return &ValidationError{Key: "readiness.timeout", Message: "must be positive"}
	}

	if strings.TrimSpace(c.Analysis.Command) == "" {
		return &ValidationError{Key: "analysis.command", Message: "is required"}
	}
	if c.Analysis.Timeout < 0 {
		return &ValidationError{Key: "analysis.timeout", Message: "must not be negative"}
	}
	if strings.TrimSpace(c.Result.Path) == "" {
		return &ValidationError{Key: "result.path", Message: "is required"}
	}

	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Bucket) == "" {
		return &ValidationError{Key: "archive.bucket", Message: "is required when archive is enabled"}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Archive.SecretAccessKey != "" {
		c.Archive.SecretAccessKey = "********"
	}
	return c
}
