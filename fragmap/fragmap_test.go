package fragmap_test

import (
	"reflect"
	"testing"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/covstats"
	"github.com/bioc/NxtIRFcore/fragmap"
)

func testRegistry() *chroms.Registry {
	return chroms.New([]chroms.Entry{
		{Name: "chr2", Length: 1000},
		{Name: "chr1", Length: 500},
	})
}

func frag(ref uint32, rev bool, blocks ...[2]uint32) fragmap.Fragment {
	return fragmap.Fragment{RefIndex: ref, Reverse: rev, Blocks: blocks}
}

func TestCanonicalForm(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	m.ProcessFragment(frag(0, false, [2]uint32{100, 100}))
	m.ProcessFragment(frag(0, false, [2]uint32{150, 50}, [2]uint32{300, 20}))
	m.ProcessFragment(frag(0, true, [2]uint32{150, 50}))
	m.Finalize(2)

	for ch := fragmap.Channel(0); ch < 3; ch++ {
		segs := m.Segments(ch, 0)
		for i := 1; i < len(segs); i++ {
			if segs[i].Pos <= segs[i-1].Pos {
				t.Fatalf("channel %d: positions not strictly increasing: %v", ch, segs)
			}
			if segs[i].Depth == segs[i-1].Depth {
				t.Fatalf("channel %d: adjacent equal depths: %v", ch, segs)
			}
		}
	}

	got := m.Segments(fragmap.Unstranded, 0)
	exp := []fragmap.Segment{{100, 1}, {150, 3}, {200, 0}, {300, 1}, {320, 0}}
	if !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected: %v, got: %v", exp, got)
	}
}

func TestCompactionPlacement(t *testing.T) {
	// compacting after every fragment must be observationally identical to
	// never compacting.
	every := fragmap.New(testRegistry(), 1)
	never := fragmap.New(testRegistry(), 1<<30)
	for _, f := range []fragmap.Fragment{
		frag(0, false, [2]uint32{10, 20}),
		frag(0, false, [2]uint32{10, 20}),
		frag(0, true, [2]uint32{0, 15}),
		frag(1, false, [2]uint32{25, 5}, [2]uint32{40, 10}),
		frag(0, false, [2]uint32{30, 1}),
	} {
		every.ProcessFragment(f)
		never.ProcessFragment(f)
	}
	every.Finalize(1)
	never.Finalize(4)

	for ch := fragmap.Channel(0); ch < 3; ch++ {
		for ref := uint32(0); ref < 2; ref++ {
			a, b := every.Segments(ch, ref), never.Segments(ch, ref)
			if len(a) == 0 && len(b) == 0 {
				continue
			}
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("channel %d chrom %d: expected: %v, got: %v", ch, ref, a, b)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	a := fragmap.New(testRegistry(), 2)
	b := fragmap.New(testRegistry(), 0)
	all := fragmap.New(testRegistry(), 0)

	fragsA := []fragmap.Fragment{
		frag(0, false, [2]uint32{100, 100}),
		frag(0, false, [2]uint32{120, 30}),
		frag(1, true, [2]uint32{5, 10}),
	}
	fragsB := []fragmap.Fragment{
		frag(0, false, [2]uint32{150, 100}),
		frag(1, false, [2]uint32{5, 10}),
	}
	for _, f := range fragsA {
		a.ProcessFragment(f)
		all.ProcessFragment(f)
	}
	for _, f := range fragsB {
		b.ProcessFragment(f)
		all.ProcessFragment(f)
	}
	a.Combine(b)
	a.Finalize(2)
	all.Finalize(1)

	for ch := fragmap.Channel(0); ch < 3; ch++ {
		for ref := uint32(0); ref < 2; ref++ {
			if !reflect.DeepEqual(a.Segments(ch, ref), all.Segments(ch, ref)) {
				t.Fatalf("channel %d chrom %d: expected: %v, got: %v",
					ch, ref, all.Segments(ch, ref), a.Segments(ch, ref))
			}
		}
	}
}

func TestCombineAfterFinalizePanics(t *testing.T) {
	a := fragmap.New(testRegistry(), 0)
	b := fragmap.New(testRegistry(), 0)
	a.ProcessFragment(frag(0, false, [2]uint32{10, 10}))
	a.Finalize(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic combining after finalize")
		}
	}()
	a.Combine(b)
}

func TestHistTotals(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	m.ProcessFragment(frag(0, false, [2]uint32{100, 100}))
	m.ProcessFragment(frag(0, false, [2]uint32{150, 200}))
	m.Finalize(1)

	for _, q := range [][2]uint32{{0, 1000}, {0, 50}, {120, 180}, {350, 360}, {999, 1000}} {
		hist := covstats.Hist{}
		m.UpdateHist(hist, fragmap.Unstranded, 0, q[0], q[1])
		if got := covstats.Size(hist); got != int(q[1]-q[0]) {
			t.Fatalf("query %v: expected %d bases, got %d", q, q[1]-q[0], got)
		}
	}
}

func TestMissingChromosome(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	m.Finalize(1)
	hist := covstats.Hist{}
	m.UpdateHist(hist, fragmap.Unstranded, 77, 100, 200)
	if !reflect.DeepEqual(hist, covstats.Hist{0: 100}) {
		t.Fatalf("expected all bases at depth 0, got: %v", hist)
	}
}

func TestRegionDepths(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	m.ProcessFragment(frag(0, false, [2]uint32{100, 100}))
	m.ProcessFragment(frag(0, false, [2]uint32{150, 50}))
	m.Finalize(1)

	hist := covstats.Hist{}
	m.UpdateHist(hist, fragmap.Unstranded, 0, 100, 200)
	if !reflect.DeepEqual(hist, covstats.Hist{1: 50, 2: 50}) {
		t.Fatalf("expected {1:50 2:50}, got: %v", hist)
	}
	if got := covstats.Mean(hist); got != 1.5 {
		t.Fatalf("expected mean 1.5, got %v", got)
	}
	if got := covstats.CoverageFraction(hist); got != 1.0 {
		t.Fatalf("expected coverage 1.0, got %v", got)
	}
}

func TestLowCoverage(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	for i := 0; i < 5; i++ {
		m.ProcessFragment(frag(0, false, [2]uint32{100, 100}))
	}
	got := m.LowCoverage(4)
	// presentation order is name-sorted: chr1 (refIndex 1) before chr2.
	want := []fragmap.Interval{
		{"chr1", 0, 500},
		{"chr2", 0, 100},
		{"chr2", 200, 1000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected: %v, got: %v", want, got)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	m := fragmap.New(testRegistry(), 0)
	m.ProcessFragment(frag(0, false, [2]uint32{10, 5}))
	m.Finalize(1)
	before := m.Segments(fragmap.Forward, 0)
	m.Finalize(3)
	if !reflect.DeepEqual(before, m.Segments(fragmap.Forward, 0)) {
		t.Fatal("finalize is not idempotent")
	}
}
