// Command docmill runs the conversion and compression engine against local
// files, persisting usage totals in a local SQLite database. It is the
// off-cloud counterpart of the image-converter and pdf-compressor functions.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/ledger"
)

var (
	accountUser string
	dbPath      string
)

var rootCmd = &cobra.Command{
	Use:   "docmill",
	Short: "Convert images to PDF and compress PDFs, with local usage accounting",
	Long: `docmill converts batches of raster images into single paginated PDFs and
rewrites existing PDFs under one of three compression strategies. Every
completed operation is counted per user in a local SQLite ledger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&accountUser, "user", "local", "User id to account operations against")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "Usage database path")
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err, "code", engine.Kind(err))
		os.Exit(1)
	}
}

// readAsset loads a local file and sniffs its content type from the leading
// bytes, the same signal an upload's declared type would carry.
func readAsset(path string, index int) (*engine.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &engine.Asset{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Index:       index,
	}, nil
}

func incrementUsage(ctx context.Context, userID string, delta int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return 0, err
	}
	usage, err := ledger.NewSQLite(dbPath)
	if err != nil {
		return 0, err
	}
	return usage.Increment(ctx, userID, delta)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docmill-usage.db"
	}
	return filepath.Join(home, ".docmill", "usage.db")
}
