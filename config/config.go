// Package config loads storage client settings from a file, the environment
// and an optional .env file.
//
// Settings are read in increasing order of precedence: defaults, the config
// file (YAML, JSON or TOML), then environment variables prefixed with
// STORAGE_. Nested keys use underscores, so log.level is STORAGE_LOG_LEVEL.
//
// # Basic Usage
//
//	cfg, err := config.Load("storage.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	client, err := storage.New(cfg.ClientOptions()...)
//
// A minimal config file:
//
//	region: eu-central-1
//	bucket: media
//	identity_id: user-42
//	access_level: private
//	expires_in: 30m
//	log:
//	  level: debug
//	  format: json
package config

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Config is the full set of settings a storage client can be built from.
type Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	MaxRetries     int    `mapstructure:"max_retries"`

	// IdentityID owns the protected and private namespaces
	IdentityID string `mapstructure:"identity_id"`

	// AccessLevel is the namespace used when an operation names none
	AccessLevel string `mapstructure:"access_level"`

	// ExpiresIn is the default lifetime requested for presigned URLs
	ExpiresIn time.Duration `mapstructure:"expires_in"`

	Credentials CredentialsConfig `mapstructure:"credentials"`
	Log         LogConfig         `mapstructure:"log"`
}

// CredentialsConfig holds static credentials. When AccessKeyID is empty the
// AWS default credential chain is used instead.
type CredentialsConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// LogConfig controls the logger built by NewLogger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HasStaticCredentials reports whether static credentials are configured.
func (c *Config) HasStaticCredentials() bool {
	return c.Credentials.AccessKeyID != ""
}

// DefaultAccessLevel returns AccessLevel as an s3types.AccessLevel.
func (c *Config) DefaultAccessLevel() s3types.AccessLevel {
	return s3types.AccessLevel(c.AccessLevel)
}

// ClientOptions converts the configuration into storage client options.
// Call Validate first; ClientOptions does not check values.
func (c *Config) ClientOptions() []s3types.Option {
	opts := []s3types.Option{
		storage.WithRegion(c.Region),
		storage.WithDefaultAccessLevel(c.DefaultAccessLevel()),
	}

	if c.Bucket != "" {
		opts = append(opts, storage.WithBucket(c.Bucket))
	}
	if c.Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(c.Endpoint))
	}
	if c.ForcePathStyle {
		opts = append(opts, storage.WithForcePathStyle(true))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, storage.WithMaxRetries(c.MaxRetries))
	}
	if c.IdentityID != "" {
		opts = append(opts, storage.WithIdentityID(c.IdentityID))
	}
	if c.HasStaticCredentials() {
		opts = append(opts, storage.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.Credentials.AccessKeyID,
			c.Credentials.SecretAccessKey,
			c.Credentials.SessionToken,
		)))
	}

	return opts
}

// NewLogger builds a logrus logger from the log settings.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, invalid("log.level", err.Error())
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch c.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, invalid("log.format", "must be text or json")
	}

	return logger, nil
}
