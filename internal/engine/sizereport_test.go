package engine

import (
	"math"
	"testing"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name        string
		initialSize int64
		finalLen    int
		wantPercent int
	}{
		{"sixty percent reduction", 1_000_000, 400_000, 60},
		{"no change", 500, 500, 0},
		{"output grew", 1000, 1500, -50},
		{"rounding up", 3, 1, 67},
		{"half rounds to even, down", 200, 75, 62},
		{"half rounds to even, up", 200, 73, 64},
		{"everything removed", 1000, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Report(tt.initialSize, make([]byte, tt.finalLen))
			if r.PercentReduction != tt.wantPercent {
				t.Errorf("PercentReduction = %d, want %d", r.PercentReduction, tt.wantPercent)
			}
			if r.InitialSize != tt.initialSize {
				t.Errorf("InitialSize = %d, want %d", r.InitialSize, tt.initialSize)
			}
			if r.FinalSize != int64(tt.finalLen) {
				t.Errorf("FinalSize = %d, want %d", r.FinalSize, tt.finalLen)
			}
		})
	}
}

func TestReportZeroInitialSize(t *testing.T) {
	for _, finalLen := range []int{0, 1, 100000} {
		r := Report(0, make([]byte, finalLen))
		if r.PercentReduction != 0 {
			t.Errorf("Report(0, %d bytes).PercentReduction = %d, want 0", finalLen, r.PercentReduction)
		}
	}
}

func TestReportMegabytes(t *testing.T) {
	r := Report(2<<20, make([]byte, 1<<20))
	if math.Abs(r.InitialMB()-2) > 1e-9 {
		t.Errorf("InitialMB = %g, want 2", r.InitialMB())
	}
	if math.Abs(r.FinalMB()-1) > 1e-9 {
		t.Errorf("FinalMB = %g, want 1", r.FinalMB())
	}
	if r.PercentReduction != 50 {
		t.Errorf("PercentReduction = %d, want 50", r.PercentReduction)
	}
}
