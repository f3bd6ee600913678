package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current job status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status document")
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	job, err := c.Status(cmd.Context())
	if err != nil {
		return clientError("Failed to fetch status", err)
	}
	if statusJSON {
		return printJSON(cmd.OutOrStdout(), job)
	}
	writeStatus(cmd.OutOrStdout(), job)
	return nil
}

func writeStatus(w io.Writer, job orchestrator.Job) {
	line := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}
	if job.ID != "" {
		line("Job", job.ID)
	}
	line("Status", string(job.State))
	line("Message", job.Message)
	if job.StartTime != nil {
		line("Started", job.StartTime.Format(time.RFC3339))
	}
	if job.EndTime != nil {
		line("Finished", job.EndTime.Format(time.RFC3339))
		if job.StartTime != nil {
			line("Duration", job.EndTime.Sub(*job.StartTime).Round(time.Millisecond).String())
		}
	}
	if job.Inputs.ImagePath != "" {
		line("Image", job.Inputs.ImagePath)
	}
	if job.Inputs.WeightGrams != nil {
		line("Weight", fmt.Sprintf("%g g", *job.Inputs.WeightGrams))
	}
	if len(job.ResourceUsage) > 0 {
		parts := make([]string, 0, len(job.ResourceUsage))
		for _, u := range job.ResourceUsage {
			parts = append(parts, fmt.Sprintf("%d:%.0f%%", u.ID, u.Usage))
		}
		line("CPU", strings.Join(parts, " "))
	}
}
