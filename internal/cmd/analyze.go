package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Start an analysis job on a running service",
	Long: `Ask the service to start an analysis job and print its id.

With --wait the command polls until the job is terminal and then prints the
result (or the failure message, exiting 1).

Examples:
  platesense analyze
  platesense analyze --wait
  platesense analyze --server http://pi.local:8080 --wait --poll 500ms`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var (
	analyzeWait bool
	analyzePoll time.Duration
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeWait, "wait", false, "Wait for the job to finish and print the result")
	analyzeCmd.Flags().DurationVar(&analyzePoll, "poll", time.Second, "Status poll interval with --wait")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	started, err := c.Analyze(ctx)
	if err != nil {
		return clientError("Failed to start analysis", err)
	}
	_, _ = fmt.Fprintf(out, "Job %s %s\n", started.JobID, started.Status)
	if !analyzeWait {
		return nil
	}

	job, err := c.Wait(ctx, started.JobID, analyzePoll)
	if err != nil {
		return clientError("Failed waiting for job", err)
	}
	if job.State != orchestrator.StateCompleted {
		return exitError(ExitFailure, fmt.Sprintf("Job %s %s", job.ID, job.State), fmt.Errorf("%s", job.Message))
	}

	result, err := c.Result(ctx)
	if err != nil {
		return clientError("Failed to fetch result", err)
	}
	return printJSON(out, result)
}
