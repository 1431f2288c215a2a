package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/semaphore"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/gcp"
	"github.com/docmill/docmill/internal/ledger"
	"github.com/docmill/docmill/internal/models"
)

type CompressorConfig struct {
	ProjectID       string
	OutputBucket    string
	UsageCollection string
}

// CompressorFunction rewrites an existing PDF under one of the three
// strategies. Rewrites are CPU-bound, so concurrent requests share a
// semaphore sized to the machine instead of piling onto every core at once.
type CompressorFunction struct {
	store        blobStore
	usage        ledger.Ledger
	rewriter     *engine.Rewriter
	rewriteSlots *semaphore.Weighted
	config       CompressorConfig
}

func loadCompressorConfig() (*CompressorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("COMPRESSED_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("COMPRESSED_BUCKET environment variable must be set")
	}
	return &CompressorConfig{
		ProjectID:       projectID,
		OutputBucket:    outputBucket,
		UsageCollection: gcp.GetEnv("USAGE_COLLECTION", "usage"),
	}, nil
}

func NewCompressor(ctx context.Context) (*CompressorFunction, error) {
	config, err := loadCompressorConfig()
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

	f := &CompressorFunction{
		store:        store,
		usage:        ledger.NewFirestore(firestoreClient, config.UsageCollection),
		rewriter:     engine.NewRewriter(),
		rewriteSlots: semaphore.NewWeighted(int64(runtime.NumCPU())),
		config:       *config,
	}
	slog.Info("PDF compressor initialized.", "outputBucket", config.OutputBucket)
	return f, nil
}

// Process rewrites req.Document under req.Strategy, uploads the result and
// increments the user's usage total by one. The strategy selector is
// checked before any bytes move, so an unsupported value touches neither
// storage nor the ledger.
func (f *CompressorFunction) Process(ctx context.Context, req *models.CompressRequest) (*models.CompressResponse, error) {
	logCtx := slog.With("userId", req.UserID, "strategy", req.Strategy)

	if req.UserID == "" {
		return nil, fmt.Errorf("userId must be provided")
	}
	strategy, err := engine.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}

	asset, err := f.fetchDocument(ctx, req.Document)
	if err != nil {
		logCtx.Error("Failed to fetch document", "gcsObject", req.Document.Object, "error", err)
		return nil, err
	}

	if err := f.rewriteSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	rewritten, err := f.rewriter.Rewrite(ctx, asset.Data, strategy)
	f.rewriteSlots.Release(1)
	if err != nil {
		logCtx.Error("Rewrite failed", "error", err)
		return nil, err
	}

	report := engine.Report(asset.Size, rewritten)

	outputBucket := f.config.OutputBucket
	if req.OutputBucket != "" {
		outputBucket = req.OutputBucket
	}
	objectName := fmt.Sprintf("%s/compressed-%d.pdf", req.UserID, time.Now().UnixNano())
	if err := f.store.Write(ctx, outputBucket, objectName, "application/pdf", rewritten); err != nil {
		return nil, fmt.Errorf("failed to store rewritten document: %w", err)
	}
	outputURI := fmt.Sprintf("gs://%s/%s", outputBucket, objectName)
	logCtx.Info("Compression stored.",
		"gcsUri", outputURI,
		"initialBytes", report.InitialSize,
		"finalBytes", report.FinalSize,
		"percentReduction", report.PercentReduction,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, err := f.usage.Increment(ctx, req.UserID, 1)
	if err != nil {
		logCtx.Error("Usage ledger increment failed after a stored compression", "error", err)
		return nil, fmt.Errorf("document stored at %s but usage total is unknown: %w", outputURI, err)
	}

	return &models.CompressResponse{
		Status:           "COMPRESSED",
		AttemptedCount:   1,
		TotalCount:       total,
		InitialSizeMB:    report.InitialMB(),
		FinalSizeMB:      report.FinalMB(),
		PercentReduction: report.PercentReduction,
		OutputGCSUri:     outputURI,
	}, nil
}

func (f *CompressorFunction) fetchDocument(ctx context.Context, ref models.AssetRef) (*engine.Asset, error) {
	contentType, size, err := f.store.Stat(ctx, ref.Bucket, ref.Object)
	if err != nil {
		return nil, err
	}

	asset := engine.Asset{
		ContentType: contentType,
		Size:        size,
	}
	if err := engine.Validate(&asset, engine.KindDocument); err != nil {
		return nil, err
	}

	data, err := f.store.Read(ctx, ref.Bucket, ref.Object, engine.MaxDocumentBytes)
	if err != nil {
		return nil, err
	}
	asset.Data = data
	return &asset, nil
}
