package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/api"
	"github.com/lien-Gu/bookrank/internal/scheduler"
)

// newServeCmd creates the 'serve' subcommand, which runs the REST API and
// the periodic crawl scheduler until interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API and the crawl scheduler",
		Long: `Starts the REST API server and, unless disabled in configuration,
the cron scheduler that crawls each catalog page on its cadence.
The process runs until SIGINT or SIGTERM.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(appInstance.Catalog(), appInstance.Runner(), logger)
	if err := sched.Register(ctx); err != nil {
		return fmt.Errorf("register crawl jobs: %w", err)
	}
	if cfg.Scheduler.Enabled {
		sched.Start()
		logger.Info("scheduler started", zap.Int("jobs", sched.JobCount()))
	} else {
		logger.Info("scheduler disabled, crawls run only via the API")
	}

	server := api.NewServer(appInstance.Stores(), sched, appInstance.Catalog(), cfg, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler drain failed", zap.Error(err))
		}
	}
	logger.Info("serve command finished")
	return nil
}
