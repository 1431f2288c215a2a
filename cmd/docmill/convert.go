package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docmill/docmill/internal/engine"
)

var convertOutput string

var convertCmd = &cobra.Command{
	Use:   "convert <image>...",
	Short: "Convert images into a single paginated PDF",
	Long: `Places each image on its own US Letter page, scaled to fit while
preserving aspect ratio. Page order follows argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, args)
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "out", "o", "converted.pdf", "Output PDF path")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	assets := make([]engine.Asset, len(args))
	for i, path := range args {
		asset, err := readAsset(path, i)
		if err != nil {
			return fmt.Errorf("image %d (%s): %w", i, path, err)
		}
		assets[i] = *asset
	}

	document, err := engine.NewComposer().Compose(cmd.Context(), assets)
	if err != nil {
		return err
	}
	if err := os.WriteFile(convertOutput, document, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", convertOutput, err)
	}

	total, err := incrementUsage(cmd.Context(), accountUser, int64(len(assets)))
	if err != nil {
		return fmt.Errorf("document written to %s but usage total is unknown: %w", convertOutput, err)
	}

	slog.Info("Conversion complete.",
		"output", convertOutput,
		"attemptedCount", len(assets),
		"totalCount", total,
	)
	return nil
}
