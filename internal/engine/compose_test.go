package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func pngAsset(t *testing.T, w, h int, c color.Color, index int) Asset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return Asset{
		Data:        buf.Bytes(),
		ContentType: "image/png",
		Size:        int64(buf.Len()),
		Index:       index,
	}
}

func documentPageCount(t *testing.T, doc []byte) int {
	t.Helper()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), newConfiguration())
	if err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		t.Fatalf("failed to resolve page count: %v", err)
	}
	return pdfCtx.PageCount
}

func TestComposeProducesOnePagePerImage(t *testing.T) {
	colors := []color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	}
	assets := make([]Asset, len(colors))
	for i, c := range colors {
		assets[i] = pngAsset(t, 40+i*10, 30, c, i)
	}

	doc, err := NewComposer().Compose(context.Background(), assets)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if got := documentPageCount(t, doc); got != len(assets) {
		t.Errorf("page count = %d, want %d", got, len(assets))
	}
}

func TestRenderPagesFillsSubmissionIndexSlots(t *testing.T) {
	// Mixed sizes so completion order differs from submission order; every
	// slot must still hold its own submission's page.
	assets := []Asset{
		pngAsset(t, 400, 300, color.White, 0),
		pngAsset(t, 8, 8, color.Black, 1),
		pngAsset(t, 300, 400, color.White, 2),
		pngAsset(t, 16, 16, color.Black, 3),
	}

	pages, err := NewComposer().renderPages(context.Background(), assets)
	if err != nil {
		t.Fatalf("renderPages returned error: %v", err)
	}
	if len(pages) != len(assets) {
		t.Fatalf("got %d pages, want %d", len(pages), len(assets))
	}
	for i, page := range pages {
		if len(page) == 0 {
			t.Errorf("page %d is empty", i)
			continue
		}
		if got := documentPageCount(t, page); got != 1 {
			t.Errorf("page %d buffer holds %d pages, want 1", i, got)
		}
	}
}

func TestRenderPagesCommitsBySubmissionIndex(t *testing.T) {
	// Workers finish in reverse submission order here; each slot must still
	// end up holding its own submission's page.
	const n = 16
	assets := make([]Asset, n)
	for i := range assets {
		assets[i] = Asset{Data: []byte{byte(i)}, ContentType: "image/png", Size: 1, Index: i}
	}

	c := NewComposer()
	c.maxWorkers = n
	c.render = func(a *Asset) ([]byte, error) {
		time.Sleep(time.Duration(n-a.Index) * time.Millisecond)
		return []byte{a.Data[0]}, nil
	}

	pages, err := c.renderPages(context.Background(), assets)
	if err != nil {
		t.Fatalf("renderPages returned error: %v", err)
	}
	for i, page := range pages {
		if len(page) != 1 || page[0] != byte(i) {
			t.Errorf("slot %d holds page %v, want submission %d", i, page, i)
		}
	}
}

func TestComposeFailsAtomically(t *testing.T) {
	assets := []Asset{
		pngAsset(t, 40, 30, color.White, 0),
		{Data: []byte("not an image"), ContentType: "text/plain", Size: 12, Index: 1},
		pngAsset(t, 40, 30, color.White, 2),
	}

	doc, err := NewComposer().Compose(context.Background(), assets)
	if doc != nil {
		t.Error("Compose returned a partial document alongside an error")
	}
	if !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("Compose error = %v, want ErrInvalidFileType", err)
	}
	if err == nil || !strings.Contains(err.Error(), "image 1") {
		t.Errorf("error %q does not name the failing submission index", err)
	}
}

func TestComposeRejectsCorruptImage(t *testing.T) {
	assets := []Asset{
		{Data: []byte("\x89PNG but not really"), ContentType: "image/png", Size: 19, Index: 0},
	}
	_, err := NewComposer().Compose(context.Background(), assets)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Compose error = %v, want ErrDecodeFailure", err)
	}
}

func TestComposeEmptyInput(t *testing.T) {
	if _, err := NewComposer().Compose(context.Background(), nil); !errors.Is(err, ErrNoFileProvided) {
		t.Errorf("Compose(nil) error = %v, want ErrNoFileProvided", err)
	}
}

func TestComposeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assets := []Asset{pngAsset(t, 40, 30, color.White, 0)}
	doc, err := NewComposer().Compose(ctx, assets)
	if err == nil {
		t.Fatal("Compose succeeded with a cancelled context")
	}
	if doc != nil {
		t.Error("Compose returned a document despite cancellation")
	}
}
