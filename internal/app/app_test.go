package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lien-Gu/bookrank/internal/config"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.json")
	data := `{
		"site": "https://www.jjwxc.net",
		"user_agent": "bookrank/1.0",
		"pages": [
			{"id": "jiazi", "name": "夹子", "url": "https://app.jjwxc.net/bookstore/favObservationByDate", "kind": "json", "channel": "index", "schedule": "hourly"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:   config.ServerConfig{Port: 8000},
		Catalog:  config.CatalogConfig{Path: writeCatalog(t)},
		Fetch:    config.FetchConfig{Timeout: 15 * time.Second, Retries: 3},
		Database: config.DatabaseConfig{Provider: "memory"},
		Archive:  config.ArchiveConfig{Provider: "noop"},
		Events:   config.EventsConfig{Provider: "memory"},
	}
}

func TestNewAppMemoryProviders(t *testing.T) {
	a, err := NewApp(context.Background(), baseConfig(t))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Stores())
	require.NotNil(t, a.Runner())
	require.Equal(t, []string{"jiazi"}, a.Catalog().PageIDs())
}

func TestNewAppLocalArchive(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Archive.Provider = "local"
	cfg.Archive.Local.Dir = filepath.Join(t.TempDir(), "raw")

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.DirExists(t, cfg.Archive.Local.Dir)
}

func TestNewAppMissingCatalog(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "absent.json")

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewAppUnknownDatabaseProvider(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Database.Provider = "oracle"

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}
