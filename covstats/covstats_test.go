package covstats_test

import (
	"math"
	"testing"

	"github.com/bioc/NxtIRFcore/covstats"
)

func TestMean(t *testing.T) {
	h := covstats.Hist{1: 50, 2: 50}
	if got := covstats.Mean(h); got != 1.5 {
		t.Fatalf("expected: 1.5, got: %v", got)
	}
	if got := covstats.Mean(covstats.Hist{}); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty histogram, got: %v", got)
	}
}

func TestCoverageFraction(t *testing.T) {
	if got := covstats.CoverageFraction(covstats.Hist{5: 10, 7: 3}); got != 1.0 {
		t.Fatalf("expected: 1.0, got: %v", got)
	}
	if got := covstats.CoverageFraction(covstats.Hist{0: 25, 5: 75}); got != 0.75 {
		t.Fatalf("expected: 0.75, got: %v", got)
	}
}

func TestPercentileSingleBase(t *testing.T) {
	if got := covstats.Percentile(covstats.Hist{5: 1}, 50); got != 5 {
		t.Fatalf("expected: 5, got: %v", got)
	}
}

func TestPercentileBoundaries(t *testing.T) {
	h := covstats.Hist{1: 4, 9: 4}
	if got := covstats.Percentile(h, 0); got != 1 {
		t.Fatalf("percentile(0): expected: 1, got: %v", got)
	}
	// percentile(100) walks past the histogram: undefined sentinel.
	if got := covstats.Percentile(h, 100); !math.IsNaN(got) {
		t.Fatalf("percentile(100): expected NaN, got: %v", got)
	}
	if got := covstats.Percentile(covstats.Hist{}, 50); !math.IsNaN(got) {
		t.Fatalf("empty percentile: expected NaN, got: %v", got)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	// size 4, p50: index 2.5 interpolates halfway between the bins.
	h := covstats.Hist{10: 2, 20: 2}
	if got := covstats.Percentile(h, 50); got != 15 {
		t.Fatalf("expected: 15, got: %v", got)
	}
}

func TestTrimmedMeanEqualsMean(t *testing.T) {
	for _, h := range []covstats.Hist{
		{1: 50, 2: 50},
		{0: 10, 3: 5, 100: 1},
		{7: 1},
	} {
		if tm, m := covstats.TrimmedMean(h, 100), covstats.Mean(h); tm != m {
			t.Fatalf("%v: expected trimmed mean %v to equal mean %v", h, tm, m)
		}
	}
}

func TestTrimmedMean(t *testing.T) {
	// 10 bases trimmed from each tail removes the outlier bins entirely.
	h := covstats.Hist{0: 10, 5: 80, 100: 10}
	if got := covstats.TrimmedMean(h, 80); got != 5 {
		t.Fatalf("expected: 5, got: %v", got)
	}
	if got := covstats.TrimmedMean(covstats.Hist{1: 50, 2: 50}, 40); got != 1.5 {
		t.Fatalf("expected: 1.5, got: %v", got)
	}
}

func TestTrimmedMeanDegenerate(t *testing.T) {
	// every retained base sits in the bin straddling both boundaries.
	if got := covstats.TrimmedMean(covstats.Hist{3: 10}, 50); got != 3 {
		t.Fatalf("expected: 3, got: %v", got)
	}
	// trim window collapses to zero width: undefined.
	if got := covstats.TrimmedMean(covstats.Hist{1: 2}, 0); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got: %v", got)
	}
	if got := covstats.TrimmedMean(covstats.Hist{}, 40); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty histogram, got: %v", got)
	}
}
