package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Print the latest analysis result",
	Args:  cobra.NoArgs,
	RunE:  runResult,
}

var resultFormat string

func init() {
	rootCmd.AddCommand(resultCmd)
	resultCmd.Flags().StringVarP(&resultFormat, "format", "o", "json", "Output format: json or yaml")
}

func runResult(cmd *cobra.Command, args []string) error {
	if resultFormat != "json" && resultFormat != "yaml" {
		return exitError(ExitInvalidArgument, fmt.Sprintf("Unknown --format %q (want json or yaml)", resultFormat), nil)
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	result, err := c.Result(cmd.Context())
	if err != nil {
		return clientError("Failed to fetch result", err)
	}

	out := cmd.OutOrStdout()
	if resultFormat == "json" {
		return printJSON(out, result)
	}
	b, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}
