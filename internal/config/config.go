// Package config loads the service configuration from an optional YAML file
// layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dicomslicer/internal/store"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxUploadMB caps the accepted request body size.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
	// ShutdownTimeoutSeconds bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Backend is either "local" or "s3".
	Backend string `yaml:"backend"`
	// RetentionMinutes is how long uploads and batches survive before a
	// sweep reclaims them.
	RetentionMinutes int `yaml:"retention_minutes"`
	S3               S3  `yaml:"s3"`
}

// S3 holds object-store credentials for the s3 backend.
type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// PipelineConfig holds the rendering options.
type PipelineConfig struct {
	// Annotate burns a position label onto every slice.
	Annotate bool `yaml:"annotate"`
	// ThumbnailWidth enables gallery thumbnails when > 0.
	ThumbnailWidth int `yaml:"thumbnail_width"`
}

// DefaultConfig returns the configuration the service runs with when no file
// is given: local storage, one-hour retention, thumbnails on.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                   ":8080",
			MaxUploadMB:            200,
			ShutdownTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Backend:          "local",
			RetentionMinutes: 60,
		},
		Pipeline: PipelineConfig{
			Annotate:       false,
			ThumbnailWidth: 256,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Storage.RetentionMinutes <= 0 {
		return errors.New("storage.retention_minutes must be positive")
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if err := c.Storage.S3.ToStoreConfig().Validate(); err != nil {
			return fmt.Errorf("storage.s3: %w", err)
		}
	default:
		return fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend)
	}
	return nil
}

// Retention returns the configured retention as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionMinutes) * time.Minute
}

// MaxUploadBytes returns the request body cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// ShutdownTimeout returns the graceful shutdown bound as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ToStoreConfig converts the YAML S3 block into the store package's config.
func (s S3) ToStoreConfig() store.S3Config {
	return store.S3Config{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		Region:    s.Region,
		UseSSL:    s.UseSSL,
	}
}
