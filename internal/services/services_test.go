package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/ledger"
)

type fakeObject struct {
	contentType string
	data        []byte
}

// fakeStore is an in-memory blobStore. Writes are recorded as gs:// URIs
// in order so tests can assert what was stored and when.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	writes  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]fakeObject)}
}

func (s *fakeStore) put(bucket, object, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+object] = fakeObject{contentType: contentType, data: data}
}

func (s *fakeStore) Stat(_ context.Context, bucket, object string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+object]
	if !ok {
		return "", 0, fmt.Errorf("object gs://%s/%s not found", bucket, object)
	}
	return o.contentType, int64(len(o.data)), nil
}

func (s *fakeStore) Read(_ context.Context, bucket, object string, limit int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, fmt.Errorf("object gs://%s/%s not found", bucket, object)
	}
	if limit > 0 && int64(len(o.data)) > limit {
		return nil, fmt.Errorf("object exceeds the permitted %d bytes", limit)
	}
	return o.data, nil
}

func (s *fakeStore) Write(_ context.Context, bucket, object, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+object] = fakeObject{contentType: contentType, data: data}
	s.writes = append(s.writes, fmt.Sprintf("gs://%s/%s", bucket, object))
	return nil
}

func (s *fakeStore) WriteIfAbsent(_ context.Context, bucket, object, contentType string, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[bucket+"/"+object]; ok {
		return false, nil
	}
	s.objects[bucket+"/"+object] = fakeObject{contentType: contentType, data: data}
	s.writes = append(s.writes, fmt.Sprintf("gs://%s/%s", bucket, object))
	return true, nil
}

// failingLedger refuses every increment, simulating a ledger outage.
type failingLedger struct{}

func (failingLedger) Increment(context.Context, string, int64) (int64, error) {
	return 0, fmt.Errorf("%w: transaction aborted", ledger.ErrUnavailable)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()
	asset := engine.Asset{
		Data:        pngBytes(t, 40, 30),
		ContentType: "image/png",
	}
	asset.Size = int64(len(asset.Data))
	doc, err := engine.NewComposer().Compose(context.Background(), []engine.Asset{asset})
	if err != nil {
		t.Fatalf("failed to build fixture document: %v", err)
	}
	return doc
}
