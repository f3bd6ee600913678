// Package cmd implements the platesense command line.
package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rrrhhh38/phytiumpi-project/internal/config"
	"github.com/rrrhhh38/phytiumpi-project/internal/observability"
)

// DefaultServerURL is the service address used by client commands.
const DefaultServerURL = "http://127.0.0.1:8080"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo is called from main with linker-injected values.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	configFile string
	verbose    bool
	logLevel   string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Plate analysis service for the kitchen scale",
	Long: `platesense waits for the camera and the scale to publish their readings,
runs the nutrition analysis command and serves the result over HTTP.

Run the service with "platesense serve"; the other commands talk to a running
service or publish readiness signals for the producers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		observability.InitCLILogger(config.AppName, verbose)
		if configFile != "" {
			return os.Setenv(config.ConfigEnvVar, configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./platesense.yaml or user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level for the service")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PLATESENSE_SERVER_URL", DefaultServerURL), "Service URL for client commands")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the service config with flag overrides applied.
func loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	if overrides == nil {
		overrides = map[string]any{}
	}
	if logLevel != "" {
		overrides["logging.level"] = logLevel
	}
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return nil, exitError(ExitConfigError, "Invalid configuration", err)
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}
