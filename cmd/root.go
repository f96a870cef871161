// Package cmd defines and implements the CLI commands for the bookrank
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/app"
	"github.com/lien-Gu/bookrank/internal/catalog"
	"github.com/lien-Gu/bookrank/internal/config"
	"github.com/lien-Gu/bookrank/internal/crawl"
	"github.com/lien-Gu/bookrank/internal/logging"
	"github.com/lien-Gu/bookrank/internal/store"
	vconfig "github.com/lien-Gu/bookrank/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. It allows
// injecting a mock app during tests.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Catalog() *catalog.Catalog
	Stores() store.Provider
	Runner() *crawl.Runner
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logging.InitLogger(cfg.Logging.Development)
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookrank",
		Short: "Crawls literary ranking pages and serves their history over HTTP.",
		Long: `bookrank periodically fetches ranking and book pages from the source
site, stores timestamped snapshots in a database, and exposes the data
through a REST API.`,

		// Runs after config is loaded but before the subcommand's RunE;
		// builds the application and injects it into the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		vconfig.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/bookrank, $HOME/.bookrank)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newPagesCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Error("command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
