package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rrrhhh38/phytiumpi-project/internal/observability"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait locally for the readiness signals",
	Long: `Poll the configured readiness artifacts until the image and weight signals
are both available, without starting an analysis.

Exits 0 when every signal resolved and 1 on timeout.

Examples:
  platesense wait
  platesense wait --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

var waitTimeout time.Duration

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "Override readiness.timeout")
}

func runWait(cmd *cobra.Command, args []string) error {
	overrides := map[string]any{}
	if waitTimeout > 0 {
		overrides["readiness.timeout"] = waitTimeout.String()
	}
	cfg, err := loadConfig(cmd.Context(), overrides)
	if err != nil {
		return err
	}
	sources, err := buildSources(cfg.Readiness)
	if err != nil {
		return exitError(ExitConfigError, "Invalid readiness configuration", err)
	}

	res := buildWaiter(cfg.Readiness, observability.CLILogger).AwaitAll(cmd.Context(), sources...)

	out := cmd.OutOrStdout()
	names := make([]string, 0, len(res.Values))
	for name := range res.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "%s: %s\n", name, res.Values[name])
	}
	if res.Err != nil {
		return exitError(ExitFailure, "Wait cancelled", res.Err)
	}
	if !res.Complete() {
		return exitError(ExitFailure, fmt.Sprintf("Timed out after %s", res.Elapsed.Round(time.Millisecond)),
			fmt.Errorf("missing %v", res.Missing))
	}
	return nil
}
