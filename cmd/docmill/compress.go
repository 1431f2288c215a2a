package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docmill/docmill/internal/engine"
)

var (
	compressOutput   string
	compressStrategy string
)

var compressCmd = &cobra.Command{
	Use:   "compress <input.pdf>",
	Short: "Rewrite a PDF under a compression strategy",
	Long: `Rewrites the document under one of the strategies "lossless compression",
"remove images" or "remove duplication" and reports the size delta.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args[0])
	},
}

func init() {
	compressCmd.Flags().StringVarP(&compressOutput, "out", "o", "compressed.pdf", "Output PDF path")
	compressCmd.Flags().StringVarP(&compressStrategy, "strategy", "s", "lossless compression", "Rewrite strategy")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, inFile string) error {
	strategy, err := engine.ParseStrategy(compressStrategy)
	if err != nil {
		return err
	}

	asset, err := readAsset(inFile, 0)
	if err != nil {
		return err
	}
	if err := engine.Validate(asset, engine.KindDocument); err != nil {
		return err
	}

	rewritten, err := engine.NewRewriter().Rewrite(cmd.Context(), asset.Data, strategy)
	if err != nil {
		return err
	}
	if err := os.WriteFile(compressOutput, rewritten, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", compressOutput, err)
	}

	report := engine.Report(asset.Size, rewritten)
	total, err := incrementUsage(cmd.Context(), accountUser, 1)
	if err != nil {
		return fmt.Errorf("document written to %s but usage total is unknown: %w", compressOutput, err)
	}

	slog.Info("Compression complete.",
		"output", compressOutput,
		"strategy", strategy.String(),
		"initialSizeMb", report.InitialMB(),
		"finalSizeMb", report.FinalMB(),
		"percentReduction", report.PercentReduction,
		"totalCount", total,
	)
	return nil
}
