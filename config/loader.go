package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
)

const (
	envPrefix      = "STORAGE"
	defaultEnvFile = ".env"
	opLoad         = "loadConfig"
)

// keys lists every setting so that each can be overridden from the
// environment even when neither a default nor the config file mentions it.
var keys = []string{
	"region",
	"bucket",
	"endpoint",
	"force_path_style",
	"max_retries",
	"identity_id",
	"access_level",
	"expires_in",
	"credentials.access_key_id",
	"credentials.secret_access_key",
	"credentials.session_token",
	"log.level",
	"log.format",
}

// Load reads the configuration at path, which may be empty to use only
// defaults and the environment.
//
// envFiles are loaded into the process environment first. Without envFiles
// a .env file in the working directory is loaded if one exists. Variables
// already set in the environment are never overwritten.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, loadError(fmt.Errorf("failed to read config file %s: %w", path, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, loadError(fmt.Errorf("failed to decode config: %w", err))
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("region", "us-east-1")
	v.SetDefault("access_level", "guest")
	v.SetDefault("expires_in", 900*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	return v
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(defaultEnvFile); stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{defaultEnvFile}
	}

	if err := godotenv.Load(files...); err != nil {
		return loadError(fmt.Errorf("failed to load env files %s: %w", strings.Join(files, ", "), err))
	}
	return nil
}

func loadError(err error) error {
	return errors.NewResolutionError(opLoad, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err))
}
