package summarize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/fragmap"
	"github.com/bioc/NxtIRFcore/regions"
)

// fixed returns the same counts for every lookup.
type fixed struct {
	span, left, right, exact int
}

func (f fixed) Spans(string, uint32, fragmap.Channel) int         { return f.span }
func (f fixed) Left(string, uint32, fragmap.Channel) int          { return f.left }
func (f fixed) Right(string, uint32, fragmap.Channel) int         { return f.right }
func (f fixed) Exact(string, uint32, uint32, fragmap.Channel) int { return f.exact }

func TestClassifyPrecedence(t *testing.T) {
	// insufficient exact splicing always wins over later checks.
	if got := classify(20, 100, 100, 2, 0, 0); got != "LowSplicing" {
		t.Fatalf("expected: LowSplicing, got: %s", got)
	}
	if got := classify(1, 0, 0, 2, 0, 0); got != "LowCover" {
		t.Fatalf("expected: LowCover, got: %s", got)
	}
	if got := classify(20, 30, 2, 10, 0, 0); got != "MinorIsoform" {
		t.Fatalf("expected: MinorIsoform, got: %s", got)
	}
	// crossings must differ by more than 2 units and more than 50%.
	if got := classify(2, 10, 10, 10, 20, 20); got != "NonUniformIntronCover" {
		t.Fatalf("expected: NonUniformIntronCover, got: %s", got)
	}
	if got := classify(20, 10, 10, 10, 20, 20); got != "-" {
		t.Fatalf("expected: -, got: %s", got)
	}
}

func TestIRRatio(t *testing.T) {
	if got := irRatio(0, 0, 0, 0); got != 0 {
		t.Fatalf("expected: 0, got: %v", got)
	}
	// below one read of depth the coverage fraction stands in.
	if got := irRatio(0.5, 0.8, 2, 1); got != 0.8/(0.8+2) {
		t.Fatalf("expected: %v, got: %v", 0.8/2.8, got)
	}
	if got := irRatio(6, 1, 2, 4); got != 0.6 {
		t.Fatalf("expected: 0.6, got: %v", got)
	}
}

func testMap(t *testing.T) *fragmap.Map {
	t.Helper()
	reg := chroms.New([]chroms.Entry{{Name: "chr1", Length: 100000}})
	fm := fragmap.New(reg, 0)
	fm.ProcessFragment(fragmap.Fragment{RefIndex: 0, Blocks: [][2]uint32{{100, 100}}})
	fm.ProcessFragment(fragmap.Fragment{RefIndex: 0, Blocks: [][2]uint32{{150, 50}}})
	fm.Finalize(1)
	return fm
}

func TestRun(t *testing.T) {
	cat := []regions.Region{{
		Chrom:  "chr1",
		Start:  100,
		End:    200,
		Name:   "nd/GENE/ENSG1/+/1/100/200/100/0/clean",
		Blocks: [][2]uint32{{100, 100}},
	}}
	res, err := Run(cat, testMap(t), ZeroCounts{}, ZeroCounts{}, Options{Dir: NonDir, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(res.Summary, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Nondir_Chr\tStart\tEnd\t") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	want := "chr1\t100\t200\tGENE/ENSG1/clean\t0\t+\t0\t1\t1.5\t1\t1.5\t2\t0\t0\t1\t2\t0\t0\t0\t1\tLowCover"
	if lines[1] != want {
		t.Fatalf("expected row:\n%s\ngot:\n%s", want, lines[1])
	}
	if res.CleanSum != 1.5 || res.KnownExonSum != 0 || res.AntiSenseSum != 0 {
		t.Fatalf("unexpected sums: %v %v %v", res.CleanSum, res.KnownExonSum, res.AntiSenseSum)
	}
	if !strings.Contains(res.QC(), "Non-Directional Clean IntronDepth Sum\t1.5\n") {
		t.Fatalf("unexpected QC block:\n%s", res.QC())
	}
}

func TestRunDirectional(t *testing.T) {
	cat := []regions.Region{{
		Chrom:  "chr1",
		Start:  100,
		End:    200,
		Name:   "dir/GENE/ENSG1/+/1/100/200/100/0/clean",
		Blocks: [][2]uint32{{100, 100}},
	}}
	res, err := Run(cat, testMap(t), fixed{exact: 2, left: 1, right: 1}, fixed{span: 1},
		Options{Dir: SameStrand, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(res.Summary, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[1], "\tLowCover") {
		t.Fatalf("expected LowCover with JCexact=2 and depth 1.5: %s", lines[1])
	}
	// nd/ records are skipped in directional mode.
	cat[0].Name = "nd/GENE/ENSG1/+/1/100/200/100/0/clean"
	res, err = Run(cat, testMap(t), ZeroCounts{}, ZeroCounts{}, Options{Dir: SameStrand, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(res.Summary, "\n") != 1 {
		t.Fatalf("expected only the header, got:\n%s", res.Summary)
	}
}

func TestRunOrderStableAcrossWorkers(t *testing.T) {
	fm := testMap(t)
	var cat []regions.Region
	for i := 0; i < 25; i++ {
		cat = append(cat, regions.Region{
			Chrom:  "chr1",
			Start:  100,
			End:    200,
			Name:   fmt.Sprintf("nd/G%d/ENSG%d/+/1/100/200/100/%d/clean", i, i, i),
			Blocks: [][2]uint32{{100, 100}},
		})
	}
	var last string
	for _, workers := range []int{1, 2, 7, 32} {
		res, err := Run(cat, fm, ZeroCounts{}, ZeroCounts{}, Options{Dir: NonDir, Workers: workers})
		if err != nil {
			t.Fatal(err)
		}
		if last != "" && res.Summary != last {
			t.Fatalf("output differs with %d workers", workers)
		}
		last = res.Summary
	}
}

func TestRunSkipsMalformed(t *testing.T) {
	cat := []regions.Region{
		{Chrom: "chr1", Name: "nd/G/ID/+/1/bad/200/100/0/clean", Blocks: [][2]uint32{{100, 100}}},
		{Chrom: "chr1", Name: "nd/G/ID/+/1/100/200/100/0/clean", Blocks: [][2]uint32{{100, 100}}},
	}
	res, err := Run(cat, testMap(t), ZeroCounts{}, ZeroCounts{}, Options{Dir: NonDir, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(res.Summary, "\n") != 2 {
		t.Fatalf("expected header + 1 row after skipping the bad record, got:\n%s", res.Summary)
	}
}

func TestRunMissingChromosome(t *testing.T) {
	cat := []regions.Region{{
		Chrom:  "chrUn",
		Name:   "nd/G/ID/+/1/100/200/100/0/clean",
		Blocks: [][2]uint32{{100, 100}},
	}}
	res, err := Run(cat, testMap(t), ZeroCounts{}, ZeroCounts{}, Options{Dir: NonDir, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	// the whole span reads as depth 0: zero coverage, zero depth.
	row := strings.Split(res.Summary, "\n")[1]
	toks := strings.Split(row, "\t")
	if toks[7] != "0" || toks[8] != "0" {
		t.Fatalf("expected zero coverage and depth, got: %s", row)
	}
}
