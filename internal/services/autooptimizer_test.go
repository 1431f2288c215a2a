package services

import (
	"context"
	"testing"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/ledger"
)

func TestUserIDFromObjectName(t *testing.T) {
	tests := []struct {
		name   string
		object string
		wantID string
		wantOK bool
	}{
		{"well-formed", "users/abc123/report.pdf", "abc123", true},
		{"nested path", "users/abc123/2026/report.pdf", "abc123", true},
		{"missing prefix", "incoming/report.pdf", "", false},
		{"empty user segment", "users//report.pdf", "", false},
		{"prefix only", "users/abc123", "", false},
		{"empty name", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := userIDFromObjectName(tt.object)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("userIDFromObjectName(%q) = (%q, %v), want (%q, %v)",
					tt.object, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestAutoOptimizerRedeliveryDoesNotDoubleCount(t *testing.T) {
	store := newFakeStore()
	store.put("incoming", "users/user-a/report.pdf", "application/pdf", pdfBytes(t))

	usage := ledger.NewMemory()
	f := &AutoOptimizerFunction{
		store:    store,
		usage:    usage,
		rewriter: engine.NewRewriter(),
		config:   AutoOptimizerConfig{OptimizedBucket: "optimized"},
	}

	event := GCSEvent{Bucket: "incoming", Name: "users/user-a/report.pdf"}
	for i := 0; i < 2; i++ {
		if err := f.Process(context.Background(), event); err != nil {
			t.Fatalf("Process (delivery %d) returned error: %v", i+1, err)
		}
	}

	// The second delivery found the optimized object in place: one stored
	// result, one counted operation.
	if len(store.writes) != 1 {
		t.Errorf("optimized writes = %d, want 1", len(store.writes))
	}
	total, err := usage.Increment(context.Background(), "user-a", 1)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if total != 2 {
		t.Errorf("ledger total = %d after redelivery, want 2 (one event + this check)", total)
	}
}

func TestAutoOptimizerIgnoresNonPDFUploads(t *testing.T) {
	store := newFakeStore()
	store.put("incoming", "users/user-a/photo.png", "image/png", pngBytes(t, 10, 10))

	usage := ledger.NewMemory()
	f := &AutoOptimizerFunction{
		store:    store,
		usage:    usage,
		rewriter: engine.NewRewriter(),
		config:   AutoOptimizerConfig{OptimizedBucket: "optimized"},
	}

	if err := f.Process(context.Background(), GCSEvent{Bucket: "incoming", Name: "users/user-a/photo.png"}); err != nil {
		t.Fatalf("Process returned error for a skippable object: %v", err)
	}
	if len(store.writes) != 0 {
		t.Errorf("optimized writes = %d for a skipped object, want 0", len(store.writes))
	}
}
