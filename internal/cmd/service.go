package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rrrhhh38/phytiumpi-project/internal/config"
	"github.com/rrrhhh38/phytiumpi-project/internal/server"
	"github.com/rrrhhh38/phytiumpi-project/internal/server/handlers"
	"github.com/rrrhhh38/phytiumpi-project/pkg/archive"
	"github.com/rrrhhh38/phytiumpi-project/pkg/invoker"
	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
	"github.com/rrrhhh38/phytiumpi-project/pkg/readiness"
	"github.com/rrrhhh38/phytiumpi-project/pkg/usage"
)

// service is the assembled HTTP service.
type service struct {
	orchestrator *orchestrator.Orchestrator
	server       *server.Server
	health       *handlers.HealthManager
}

// buildSources returns the image and weight sources for cfg.
func buildSources(cfg config.ReadinessConfig) ([]readiness.Source, error) {
	var image readiness.Source
	if cfg.ImageGlob != "" {
		g, err := readiness.NewGlobSource(readiness.SignalImage, cfg.ImageRoot, cfg.ImageGlob)
		if err != nil {
			return nil, err
		}
		image = g
	} else {
		image = readiness.NewImageStatusSource(cfg.ImagePath)
	}
	return []readiness.Source{image, readiness.NewWeightSource(cfg.WeightPath)}, nil
}

func buildWaiter(cfg config.ReadinessConfig, logger *zap.Logger) *readiness.Waiter {
	return readiness.NewWaiter(readiness.Config{
		Timeout:      cfg.Timeout,
		PollInterval: cfg.PollInterval,
	}, logger)
}

func archiveConfig(cfg config.ArchiveConfig) archive.Config {
	return archive.Config{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		Profile:         cfg.Profile,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
	}
}

func newService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service, error) {
	sources, err := buildSources(cfg.Readiness)
	if err != nil {
		return nil, fmt.Errorf("readiness sources: %w", err)
	}

	inv, err := invoker.New(invoker.Command{
		Path:    cfg.Analysis.Command,
		Args:    cfg.Analysis.Args,
		Env:     cfg.Analysis.Env,
		Dir:     cfg.Analysis.Dir,
		Timeout: cfg.Analysis.Timeout,
	}, logger.Named("invoker"))
	if err != nil {
		return nil, err
	}

	resultDir := filepath.Dir(cfg.Result.Path)
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return nil, fmt.Errorf("create result directory: %w", err)
	}
	store := nutrition.NewStore(cfg.Result.Path)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithRequireCompleted(cfg.Result.RequireCompleted),
	}
	if cfg.Usage.Enabled {
		opts = append(opts, orchestrator.WithSampler(usage.NewCPUSampler()))
	}
	if cfg.Archive.Enabled {
		a, err := archive.New(ctx, archiveConfig(cfg.Archive), logger.Named("archive"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithCompletionHook(a.Hook()))
		logger.Info("Result archive enabled",
			zap.String("bucket", a.Bucket()),
			zap.String("prefix", cfg.Archive.Prefix))
	}

	orch := orchestrator.New(buildWaiter(cfg.Readiness, logger.Named("readiness")), inv, store, sources, opts...)

	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("analysis_command", commandChecker{path: cfg.Analysis.Command, dir: cfg.Analysis.Dir})
	health.RegisterChecker("result_dir", dirChecker{path: resultDir})

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithJobs(orch),
		server.WithHealthManager(health),
		server.WithVersion(handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}),
		server.WithLogger(logger.Named("http")),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		server.WithStaticDir(cfg.Server.StaticDir),
	)

	return &service{orchestrator: orch, server: srv, health: health}, nil
}

// commandChecker verifies the analysis command can be executed.
type commandChecker struct {
	path string
	dir  string
}

func (c commandChecker) CheckHealth(context.Context) error {
	_, err := resolveCommand(c.path, c.dir)
	return err
}

// resolveCommand finds the analysis executable the way os/exec will when
// the command runs in dir.
func resolveCommand(path, dir string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("analysis command is empty")
	}
	if !strings.ContainsRune(path, filepath.Separator) && !strings.Contains(path, "/") {
		return exec.LookPath(path)
	}
	full := path
	if !filepath.IsAbs(full) && dir != "" {
		full = filepath.Join(dir, full)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", full)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%s is not executable", full)
	}
	return full, nil
}

// dirChecker verifies a directory exists.
type dirChecker struct {
	path string
}

func (c dirChecker) CheckHealth(context.Context) error {
	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.path)
	}
	return nil
}
