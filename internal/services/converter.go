package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/gcp"
	"github.com/docmill/docmill/internal/ledger"
	"github.com/docmill/docmill/internal/models"
)

type ConverterConfig struct {
	ProjectID       string
	OutputBucket    string
	UsageCollection string
}

// ConverterFunction turns an ordered batch of uploaded images into one PDF
// and records the operation count in the usage ledger.
type ConverterFunction struct {
	store    blobStore
	usage    ledger.Ledger
	composer *engine.Composer
	config   ConverterConfig
}

func loadConverterConfig() (*ConverterConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("CONVERTED_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("CONVERTED_BUCKET environment variable must be set")
	}
	return &ConverterConfig{
		ProjectID:       projectID,
		OutputBucket:    outputBucket,
		UsageCollection: gcp.GetEnv("USAGE_COLLECTION", "usage"),
	}, nil
}

func NewConverter(ctx context.Context) (*ConverterFunction, error) {
	config, err := loadConverterConfig()
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

	f := &ConverterFunction{
		store:    store,
		usage:    ledger.NewFirestore(firestoreClient, config.UsageCollection),
		composer: engine.NewComposer(),
		config:   *config,
	}
	slog.Info("Image converter initialized.", "outputBucket", config.OutputBucket)
	return f, nil
}

// Process converts req.Images into a single PDF, uploads it, and increments
// the user's usage total by the number of submitted images. The ledger is
// only touched after the document has been stored; a ledger failure after
// that point is reported, never swallowed into a partial success.
func (f *ConverterFunction) Process(ctx context.Context, req *models.ConvertRequest) (*models.ConvertResponse, error) {
	logCtx := slog.With("userId", req.UserID, "imageCount", len(req.Images))

	if req.UserID == "" {
		return nil, fmt.Errorf("userId must be provided")
	}
	if len(req.Images) == 0 {
		return nil, engine.ErrNoFileProvided
	}

	assets := make([]engine.Asset, len(req.Images))
	for i, ref := range req.Images {
		asset, err := f.fetchImage(ctx, ref, i)
		if err != nil {
			logCtx.Error("Failed to fetch image", "index", i, "gcsObject", ref.Object, "error", err)
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		assets[i] = *asset
	}

	document, err := f.composer.Compose(ctx, assets)
	if err != nil {
		logCtx.Error("Composition failed", "error", err)
		return nil, err
	}

	outputBucket := f.config.OutputBucket
	if req.OutputBucket != "" {
		outputBucket = req.OutputBucket
	}
	objectName := fmt.Sprintf("%s/converted-%d.pdf", req.UserID, time.Now().UnixNano())
	if err := f.store.Write(ctx, outputBucket, objectName, "application/pdf", document); err != nil {
		return nil, fmt.Errorf("failed to store converted document: %w", err)
	}
	outputURI := fmt.Sprintf("gs://%s/%s", outputBucket, objectName)
	logCtx.Info("Conversion stored.", "gcsUri", outputURI, "bytes", len(document))

	// Count only completed operations; a cancelled request never reaches
	// the ledger.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, err := f.usage.Increment(ctx, req.UserID, int64(len(req.Images)))
	if err != nil {
		logCtx.Error("Usage ledger increment failed after a stored conversion", "error", err)
		return nil, fmt.Errorf("document stored at %s but usage total is unknown: %w", outputURI, err)
	}

	return &models.ConvertResponse{
		Status:         "CONVERTED",
		AttemptedCount: len(req.Images),
		TotalCount:     total,
		OutputGCSUri:   outputURI,
	}, nil
}

// fetchImage validates an image against the declared object attributes
// before downloading a single byte, then pulls it into memory.
func (f *ConverterFunction) fetchImage(ctx context.Context, ref models.AssetRef, index int) (*engine.Asset, error) {
	contentType, size, err := f.store.Stat(ctx, ref.Bucket, ref.Object)
	if err != nil {
		return nil, err
	}

	asset := engine.Asset{
		ContentType: contentType,
		Size:        size,
		Index:       index,
	}
	if err := engine.Validate(&asset, engine.KindImage); err != nil {
		return nil, err
	}

	data, err := f.store.Read(ctx, ref.Bucket, ref.Object, engine.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	asset.Data = data
	return &asset, nil
}
