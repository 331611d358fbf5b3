// Package config resolves settings from flags, CYBERDISC_* environment
// variables, an optional config file and a .env file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the tool
const EnvPrefix = "CYBERDISC"

// Setting keys. Flags of the same name are bound automatically.
const (
	KeyDatabaseURL  = "database-url"
	KeyEnvironment  = "environment"
	KeySECUserAgent = "sec-user-agent"
	KeyInputDir     = "input-dir"
	KeyMaxAge       = "max-age"
	KeyMinRecords   = "min-records"
	KeyStrict       = "strict"
	KeyDryRun       = "dry-run"
)

// Config holds resolved settings
type Config struct {
	DatabaseURL  string
	Environment  string
	SECUserAgent string
	InputDir     string
	// MaxAge is the longest accepted gap since the last load; zero disables
	// the freshness check.
	MaxAge     time.Duration
	MinRecords int64
	Strict     bool
	DryRun     bool
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load resolves settings. flags may be nil; configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEnvironment, "production")
	v.SetDefault(KeyInputDir, "data")
	v.SetDefault(KeyMaxAge, 24*time.Hour)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:  v.GetString(KeyDatabaseURL),
		Environment:  v.GetString(KeyEnvironment),
		SECUserAgent: v.GetString(KeySECUserAgent),
		InputDir:     v.GetString(KeyInputDir),
		MaxAge:       v.GetDuration(KeyMaxAge),
		MinRecords:   v.GetInt64(KeyMinRecords),
		Strict:       v.GetBool(KeyStrict),
		DryRun:       v.GetBool(KeyDryRun),
	}
	if cfg.MaxAge < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyMaxAge)
	}
	return cfg, nil
}

// RequireDatabase returns an error when no database URL is configured
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (--%s or %s_DATABASE_URL)", KeyDatabaseURL, EnvPrefix)
	}
	return nil
}
