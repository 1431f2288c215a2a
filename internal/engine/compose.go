package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"
)

// importDetails places each rendered image at the page origin of a Letter
// page at its already-computed absolute size.
const importDetails = "form:Letter, pos:bl, sc:1.0 abs"

// Composer assembles a batch of images into one paginated PDF. Per-image
// decode and resampling fan out across workers; every worker renders into
// its own single-page buffer and the buffers are merged strictly by
// submission index, so page order never depends on completion order.
type Composer struct {
	maxWorkers int
	render     func(*Asset) ([]byte, error)
}

// NewComposer returns a Composer with worker fan-out capped at NumCPU.
func NewComposer() *Composer {
	return &Composer{
		maxWorkers: runtime.NumCPU(),
		render:     renderPage,
	}
}

// Compose validates, lays out and renders every asset onto its own page and
// returns the merged PDF. The operation is atomic: any validation or decode
// failure aborts the whole composition with an error naming the failing
// submission index, and no partial document is ever returned.
func (c *Composer) Compose(ctx context.Context, assets []Asset) ([]byte, error) {
	if len(assets) == 0 {
		return nil, ErrNoFileProvided
	}

	pages, err := c.renderPages(ctx, assets)
	if err != nil {
		return nil, err
	}
	return mergePages(pages)
}

// renderPages produces one single-page PDF per asset. pages[i] always holds
// the page for submission index i regardless of which worker finished first.
func (c *Composer) renderPages(ctx context.Context, assets []Asset) ([][]byte, error) {
	pages := make([][]byte, len(assets))

	eg, gctx := errgroup.WithContext(ctx)
	limit := c.maxWorkers
	if len(assets) < limit {
		limit = len(assets)
	}
	eg.SetLimit(limit)

	for i := range assets {
		index := i
		asset := &assets[i]
		eg.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			page, err := c.render(asset)
			if err != nil {
				return fmt.Errorf("image %d: %w", index, err)
			}
			pages[index] = page
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// renderPage decodes one image, scales it to its page placement and wraps it
// in a single-page PDF buffer owned exclusively by this call.
func renderPage(asset *Asset) ([]byte, error) {
	if err := Validate(asset, KindImage); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	bounds := img.Bounds()
	placedWidth, placedHeight, err := Layout(float64(bounds.Dx()), float64(bounds.Dy()), PageWidth, PageHeight)
	if err != nil {
		return nil, err
	}

	resized := imaging.Resize(img, int(math.Round(placedWidth)), int(math.Round(placedHeight)), imaging.Lanczos)

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to re-encode resampled image: %w", err)
	}

	imp, err := api.Import(importDetails, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import details: %w", err)
	}

	var page bytes.Buffer
	if err := api.ImportImages(nil, &page, []io.Reader{&encoded}, imp, newConfiguration()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return page.Bytes(), nil
}

// mergePages stitches the per-image page buffers into one document, in
// slice order.
func mergePages(pages [][]byte) ([]byte, error) {
	if len(pages) == 1 {
		return pages[0], nil
	}

	readers := make([]io.ReadSeeker, len(pages))
	for i, page := range pages {
		readers[i] = bytes.NewReader(page)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to merge pages: %w", err)
	}
	return out.Bytes(), nil
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
