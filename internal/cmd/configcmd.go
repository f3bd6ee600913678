package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config file, environment and flags
are merged. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context(), nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.File != "" {
		_, _ = fmt.Fprintf(out, "# file: %s\n", cfg.File)
	}
	b, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}
