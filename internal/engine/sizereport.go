package engine

import "math"

const bytesPerMebibyte = 1 << 20

// SizeReport captures the before/after byte sizes of a rewrite or
// conversion. PercentReduction is negative when the output grew.
type SizeReport struct {
	InitialSize      int64
	FinalSize        int64
	PercentReduction int
}

// Report computes the size delta for an operation whose input was
// initialSize bytes and produced final. Pure; a zero initial size reports
// zero reduction rather than dividing by zero. Exact .5 percentages round
// half to even (200 -> 75 bytes is 62%, not 63%).
func Report(initialSize int64, final []byte) SizeReport {
	r := SizeReport{
		InitialSize: initialSize,
		FinalSize:   int64(len(final)),
	}
	if initialSize != 0 {
		r.PercentReduction = int(math.RoundToEven(float64(initialSize-r.FinalSize) / float64(initialSize) * 100))
	}
	return r
}

// InitialMB returns the input size in mebibytes.
func (r SizeReport) InitialMB() float64 {
	return float64(r.InitialSize) / bytesPerMebibyte
}

// FinalMB returns the output size in mebibytes.
func (r SizeReport) FinalMB() float64 {
	return float64(r.FinalSize) / bytesPerMebibyte
}
