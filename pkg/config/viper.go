// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file, environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. Call once at startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/bookrank/")
	viper.AddConfigPath("$HOME/.bookrank")

	// Server.
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("logging.development", false)

	// Catalog and fetch layer.
	const defaultUA = "bookrank/1.0 (+https://github.com/lien-Gu/bookrank)"
	viper.SetDefault("catalog.path", "urls.json")
	viper.SetDefault("fetch.user_agent", defaultUA)
	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.retries", 3)
	viper.SetDefault("fetch.retry_wait", "1s")
	viper.SetDefault("fetch.retry_max_wait", "10s")
	viper.SetDefault("fetch.rate_per_second", 1.0)
	viper.SetDefault("fetch.rate_burst", 1)

	// Persistence.
	viper.SetDefault("database.provider", "postgres")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_conns", 8)

	// Raw payload archive.
	viper.SetDefault("archive.provider", "local")
	viper.SetDefault("archive.local.dir", "data/raw")
	viper.SetDefault("archive.gcs.bucket_name", "")

	// Completion events.
	viper.SetDefault("events.provider", "noop")
	viper.SetDefault("events.gcp.project_id", "")
	viper.SetDefault("events.gcp.topic_id", "")

	// Scheduler.
	viper.SetDefault("scheduler.enabled", true)

	viper.SetEnvPrefix("BOOKRANK") // e.g. BOOKRANK_DATABASE_DSN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
