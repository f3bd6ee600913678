// Package archive copies completed analysis results to S3 or an
// S3-compatible object store.
package archive

import "strings"

// Config configures the S3 archiver.
//
// Credentials follow the AWS SDK v2 default chain unless AccessKeyID and
// SecretAccessKey are both set. For S3-compatible stores (MinIO on the
// device's LAN, Wasabi) set Endpoint and usually ForcePathStyle.
type Config struct {
	// Bucket is the target bucket (required).
	Bucket string

	// Prefix is prepended to every object key. A trailing slash is added
	// when missing.
	Prefix string

	// Region is the AWS region. Empty lets the SDK resolve it; AWS S3 then
	// falls back to us-east-1.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string

	// Profile selects a shared config profile.
	Profile string

	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the path instead of the host name.
	ForcePathStyle bool
}

// DefaultPrefix is the key prefix used when Config.Prefix is empty.
const DefaultPrefix = "results/"

// DefaultAWSRegion is the fallback region for AWS S3.
const DefaultAWSRegion = "us-east-1"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	if strings.HasPrefix(c.Prefix, "/") {
		return &ConfigError{Field: "Prefix", Message: "prefix must not start with '/'"}
	}
	return nil
}

func (c *Config) normalizedPrefix() string {
	p := strings.TrimSpace(c.Prefix)
	if p == "" {
		return DefaultPrefix
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "archive config: " + e.Field + ": " + e.Message
}
