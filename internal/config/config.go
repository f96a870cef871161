// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CatalogConfig points at the urls.json site catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// FetchConfig configures the outbound HTTP client.
type FetchConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	RetryWait     time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait  time.Duration `mapstructure:"retry_max_wait"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RateBurst     int           `mapstructure:"rate_burst"`
}

// DatabaseConfig selects and configures the persistence provider.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects the raw payload archive provider.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Local    struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"local"`
	GCS struct {
		BucketName string `mapstructure:"bucket_name"`
	} `mapstructure:"gcs"`
}

// EventsConfig selects the crawl completion event publisher.
type EventsConfig struct {
	Provider string `mapstructure:"provider"`
	GCP      struct {
		ProjectID string `mapstructure:"project_id"`
		TopicID   string `mapstructure:"topic_id"`
	} `mapstructure:"gcp"`
}

// SchedulerConfig toggles the periodic crawl scheduler.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load unmarshals the Viper state into a typed Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.enabled is true but auth.api_key is empty")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must not be negative")
	}
	switch c.Database.Provider {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.provider is 'postgres' but database.dsn is not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	switch c.Archive.Provider {
	case "gcs":
		if c.Archive.GCS.BucketName == "" {
			return fmt.Errorf("archive.provider is 'gcs' but archive.gcs.bucket_name is not set")
		}
	case "local":
		if c.Archive.Local.Dir == "" {
			return fmt.Errorf("archive.provider is 'local' but archive.local.dir is not set")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "pubsub":
		if c.Events.GCP.ProjectID == "" || c.Events.GCP.TopicID == "" {
			return fmt.Errorf("events.provider is 'pubsub' but project_id or topic_id is not set")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown events provider: %s", c.Events.Provider)
	}
	return nil
}
