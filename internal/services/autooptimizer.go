package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/gcp"
	"github.com/docmill/docmill/internal/ledger"
)

type AutoOptimizerConfig struct {
	ProjectID       string
	OptimizedBucket string
	UsageCollection string
}

// AutoOptimizerFunction applies the lossless rewrite to every PDF that
// lands in the incoming bucket. Objects are expected under a
// users/<userID>/ prefix; the prefix supplies the ledger identity.
type AutoOptimizerFunction struct {
	store    blobStore
	usage    ledger.Ledger
	rewriter *engine.Rewriter
	config   AutoOptimizerConfig
}

// GCSEvent is the payload of a GCS object-finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func loadAutoOptimizerConfig() (*AutoOptimizerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	optimizedBucket := gcp.GetEnv("OPTIMIZED_BUCKET", "")
	if optimizedBucket == "" {
		return nil, fmt.Errorf("OPTIMIZED_BUCKET environment variable must be set")
	}
	return &AutoOptimizerConfig{
		ProjectID:       projectID,
		OptimizedBucket: optimizedBucket,
		UsageCollection: gcp.GetEnv("USAGE_COLLECTION", "usage"),
	}, nil
}

func NewAutoOptimizer(ctx context.Context) (*AutoOptimizerFunction, error) {
	config, err := loadAutoOptimizerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	store, err := newGCSStore(ctx)
	if err != nil {
		return nil, err
	}

	f := &AutoOptimizerFunction{
		store:    store,
		usage:    ledger.NewFirestore(firestoreClient, config.UsageCollection),
		rewriter: engine.NewRewriter(),
		config:   *config,
	}
	slog.Info("Auto optimizer initialized.", "optimizedBucket", config.OptimizedBucket)
	return f, nil
}

// Process handles one GCS object-finalize event.
func (f *AutoOptimizerFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	userID, ok := userIDFromObjectName(e.Name)
	if !ok {
		logCtx.Info("Object outside the users/ prefix. Skipping.")
		return nil
	}
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Object is not a PDF. Skipping.")
		return nil
	}
	logCtx = logCtx.With("userId", userID)

	contentType, size, err := f.store.Stat(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to read object attributes", "error", err)
		return err
	}
	asset := engine.Asset{ContentType: contentType, Size: size}
	if err := engine.Validate(&asset, engine.KindDocument); err != nil {
		// Invalid uploads are dropped, not retried; redelivery cannot fix them.
		logCtx.Warn("Rejected incoming object.", "reason", engine.Kind(err), "error", err)
		return nil
	}

	asset.Data, err = f.store.Read(ctx, e.Bucket, e.Name, engine.MaxDocumentBytes)
	if err != nil {
		logCtx.Error("Failed to download object", "error", err)
		return err
	}

	optimized, err := f.rewriter.Rewrite(ctx, asset.Data, engine.StrategyLossless)
	if err != nil {
		logCtx.Error("Lossless rewrite failed", "error", err)
		return err
	}
	report := engine.Report(asset.Size, optimized)

	// Conditional write keeps redelivered events from double-counting:
	// a second delivery finds the object in place and stops here.
	created, err := f.store.WriteIfAbsent(ctx, f.config.OptimizedBucket, e.Name, "application/pdf", optimized)
	if err != nil {
		logCtx.Error("Failed to store optimized document", "error", err)
		return err
	}
	if !created {
		logCtx.Info("Optimized object already present. Skipping ledger update.")
		return nil
	}

	total, err := f.usage.Increment(ctx, userID, 1)
	if err != nil {
		logCtx.Error("Usage ledger increment failed after a stored optimization", "error", err)
		return fmt.Errorf("optimized object stored but usage total is unknown: %w", err)
	}

	logCtx.Info("Optimization complete.",
		"initialBytes", report.InitialSize,
		"finalBytes", report.FinalSize,
		"percentReduction", report.PercentReduction,
		"totalCount", total,
	)
	return nil
}

// userIDFromObjectName extracts the user id from a users/<id>/... object path.
func userIDFromObjectName(name string) (string, bool) {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 3 || parts[0] != "users" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}
