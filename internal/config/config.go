// Package config loads the field capture backend configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIELDCAPTURE_"

// Config represents the application configuration.
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
	Remote   RemoteConfig  `yaml:"remote"`
	Storage  StorageConfig `yaml:"storage"`
	Sync     SyncConfig    `yaml:"sync"`
	HTTP     HTTPConfig    `yaml:"http"`
}

// RemoteConfig selects where survey records are submitted.
type RemoteConfig struct {
	Kind     string        `yaml:"kind"` // rest or mysql
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Table    string        `yaml:"table"`
	MySQLDSN string        `yaml:"mysql_dsn"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StorageConfig selects where photos are uploaded.
type StorageConfig struct {
	Provider      string `yaml:"provider"` // aws, minio or r2
	Endpoint      string `yaml:"endpoint"`
	AccountID     string `yaml:"account_id"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// SyncConfig holds sync timing and limits.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	MaxPhotoMB   float64       `yaml:"max_photo_mb"`
	HealthURL    string        `yaml:"health_url"`
}

// HTTPConfig holds desktop server settings.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".fieldcapture")
	}

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		Remote: RemoteConfig{
			Kind:    "rest",
			Table:   "survey_records",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Provider: "aws",
			Region:   "us-east-1",
			UseSSL:   true,
		},
		Sync: SyncConfig{
			PollInterval: 30 * time.Second,
			SettleDelay:  2 * time.Second,
			MaxPhotoMB:   1,
		},
		HTTP: HTTPConfig{
			Address: "127.0.0.1:8090",
		},
	}
}

// Load builds the configuration with the following precedence:
//  1. Default values
//  2. YAML file at path (skipped when path is empty)
//  3. .env file next to the working directory, if present
//  4. FIELDCAPTURE_* environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConfig, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrConfig, "failed to parse config file", err)
		}
	}

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrConfig, "failed to load .env", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":                &c.DataDir,
		"LOG_LEVEL":               &c.LogLevel,
		"REMOTE_KIND":             &c.Remote.Kind,
		"REMOTE_BASE_URL":         &c.Remote.BaseURL,
		"REMOTE_API_KEY":          &c.Remote.APIKey,
		"REMOTE_TABLE":            &c.Remote.Table,
		"REMOTE_MYSQL_DSN":        &c.Remote.MySQLDSN,
		"STORAGE_PROVIDER":        &c.Storage.Provider,
		"STORAGE_ENDPOINT":        &c.Storage.Endpoint,
		"STORAGE_ACCOUNT_ID":      &c.Storage.AccountID,
		"STORAGE_BUCKET":          &c.Storage.Bucket,
		"STORAGE_ACCESS_KEY":      &c.Storage.AccessKey,
		"STORAGE_SECRET_KEY":      &c.Storage.SecretKey,
		"STORAGE_REGION":          &c.Storage.Region,
		"STORAGE_PUBLIC_BASE_URL": &c.Storage.PublicBaseURL,
		"SYNC_HEALTH_URL":         &c.Sync.HealthURL,
		"HTTP_ADDRESS":            &c.HTTP.Address,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REMOTE_TIMEOUT":     &c.Remote.Timeout,
		"SYNC_POLL_INTERVAL": &c.Sync.PollInterval,
		"SYNC_SETTLE_DELAY":  &c.Sync.SettleDelay,
	}
	for key, dst := range durations {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrap(errors.ErrConfig, fmt.Sprintf("invalid %s%s", EnvPrefix, key), err)
			}
			*dst = d
		}
	}

	if v, ok := lookup(EnvPrefix + "SYNC_MAX_PHOTO_MB"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrConfig, "invalid "+EnvPrefix+"SYNC_MAX_PHOTO_MB", err)
		}
		c.Sync.MaxPhotoMB = f
	}
	if v, ok := lookup(EnvPrefix + "STORAGE_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(errors.ErrConfig, "invalid "+EnvPrefix+"STORAGE_USE_SSL", err)
		}
		c.Storage.UseSSL = b
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New(errors.ErrConfig, "data_dir is required")
	}

	switch strings.ToLower(c.Remote.Kind) {
	case "rest":
		if c.Remote.BaseURL == "" {
			return errors.New(errors.ErrConfig, "remote.base_url is required for kind rest")
		}
	case "mysql":
		if c.Remote.MySQLDSN == "" {
			return errors.New(errors.ErrConfig, "remote.mysql_dsn is required for kind mysql")
		}
	default:
		return errors.New(errors.ErrConfig, fmt.Sprintf("unknown remote.kind %q", c.Remote.Kind))
	}

	if c.Storage.Bucket == "" {
		return errors.New(errors.ErrConfig, "storage.bucket is required")
	}
	if c.Sync.PollInterval < time.Second {
		return errors.New(errors.ErrConfig, "sync.poll_interval must be at least 1s")
	}
	if c.Sync.SettleDelay < 0 {
		return errors.New(errors.ErrConfig, "sync.settle_delay must not be negative")
	}
	if c.Sync.MaxPhotoMB <= 0 {
		return errors.New(errors.ErrConfig, "sync.max_photo_mb must be positive")
	}
	return nil
}
