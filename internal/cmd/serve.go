package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rrrhhh38/phytiumpi-project/internal/observability"
	"github.com/rrrhhh38/phytiumpi-project/internal/server/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP service",
	Long: `Run the HTTP service.

Routes:
  POST /api/analyze   start an analysis job
  GET  /api/status    current job snapshot
  GET  /api/results   latest analysis result
  GET  /health[/live|/ready|/startup], GET /version

Example:
  platesense serve
  platesense serve --port 9000
  PLATESENSE_CONFIG=/etc/platesense.yaml platesense serve`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override server.host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override server.port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overrides := map[string]any{}
	if serveHost != "" {
		overrides["server.host"] = serveHost
	}
	if cmd.Flags().Changed("port") {
		overrides["server.port"] = servePort
	}
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return exitError(ExitConfigError, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()
	middleware.SetLogger(logger.Named("http"))

	if cfg.File != "" {
		logger.Info("Configuration loaded", zap.String("file", cfg.File))
	}

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "Failed to build service", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := svc.server.Shutdown(shutdownCtx)
		_ = svc.orchestrator.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return exitError(ExitFailure, "Server failed", err)
	}
	logger.Info("Server stopped")
	return nil
}
