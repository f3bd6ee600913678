package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rrrhhh38/phytiumpi-project/pkg/readiness"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Publish a readiness signal",
	Long: `Publish the readiness artifacts the camera and scale producers normally write.

Useful for wiring producers written as shell scripts and for testing.

Examples:
  platesense signal image /data/capture/plate.jpg
  platesense signal weight 182.5`,
}

var signalImageCmd = &cobra.Command{
	Use:   "image <path>",
	Short: "Publish the captured image path",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignalImage,
}

var signalWeightCmd = &cobra.Command{
	Use:   "weight <grams>",
	Short: "Publish the measured weight in grams",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignalWeight,
}

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.AddCommand(signalImageCmd, signalWeightCmd)
}

func runSignalImage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context(), nil)
	if err != nil {
		return err
	}
	image, err := filepath.Abs(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid image path", err)
	}
	if err := readiness.PublishImage(cfg.Readiness.ImagePath, image, time.Now()); err != nil {
		return exitError(ExitFailure, "Failed to publish image signal", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "image %s -> %s\n", image, cfg.Readiness.ImagePath)
	return nil
}

func runSignalWeight(cmd *cobra.Command, args []string) error {
	grams, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return exitError(ExitInvalidArgument, fmt.Sprintf("Invalid weight %q", args[0]), err)
	}
	cfg, err := loadConfig(cmd.Context(), nil)
	if err != nil {
		return err
	}
	if err := readiness.PublishWeight(cfg.Readiness.WeightPath, grams); err != nil {
		return exitError(ExitFailure, "Failed to publish weight signal", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "weight %g -> %s\n", grams, cfg.Readiness.WeightPath)
	return nil
}
