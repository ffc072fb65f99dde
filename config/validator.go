package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/validation"
)

// maxExpiresIn mirrors the presigned URL ceiling of seven days.
const maxExpiresIn = 7 * 24 * time.Hour

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Region == "" {
		problems = append(problems, "region: must not be empty")
	}

	if c.Bucket != "" {
		if err := validation.ValidateBucketName(c.Bucket); err != nil {
			problems = append(problems, "bucket: "+err.Error())
		}
	}

	if !c.DefaultAccessLevel().Valid() {
		problems = append(problems, fmt.Sprintf("access_level: unknown level %q", c.AccessLevel))
	}

	if c.ExpiresIn < time.Second || c.ExpiresIn >= maxExpiresIn {
		problems = append(problems, fmt.Sprintf("expires_in: %s must be at least 1s and less than 168h", c.ExpiresIn))
	}

	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries: must not be negative")
	}

	if c.Credentials.SecretAccessKey != "" && c.Credentials.AccessKeyID == "" {
		problems = append(problems, "credentials: secret_access_key set without access_key_id")
	}
	if c.Credentials.AccessKeyID != "" && c.Credentials.SecretAccessKey == "" {
		problems = append(problems, "credentials: access_key_id set without secret_access_key")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, "log.format: must be text or json")
	}

	if len(problems) > 0 {
		return errors.NewResolutionError("validateConfig", errors.ErrInvalidConfig).
			WithMessage(strings.Join(problems, "; "))
	}

	return nil
}

func invalid(field, message string) error {
	return errors.NewResolutionError("validateConfig", errors.ErrInvalidConfig).
		WithMessage(field + ": " + message)
}
