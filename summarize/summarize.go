// Package summarize walks the blocked-region catalog, queries the coverage
// map and the splice/junction lookups per region, and emits one summary row
// per region plus running intron-depth QC sums. Regions are split into
// contiguous same-order chunks across workers; output order always equals
// catalog order.
package summarize

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/floats"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/covstats"
	"github.com/bioc/NxtIRFcore/fragmap"
	"github.com/bioc/NxtIRFcore/regions"
)

// Directionality of the measurement.
const (
	NonDir     = 0  // unstranded channel, "nd/" records
	SameStrand = 1  // region strand, "dir/" records
	AntiStrand = -1 // opposite of region strand, "dir/" records
)

// warning thresholds; see classify.
const (
	lowCoverDepth    = 10
	lowSpliceExact   = 4
	minorIsoformFrac = 4.0 / 3.0
	nonUniformUnits  = 2
	nonUniformFactor = 1.5
)

// edge windows are 50bp inset 5bp from each boundary.
const (
	edgeInset = 5
	edgeWidth = 50
)

const trimPercent = 40

// Options configures a summary run.
type Options struct {
	Dir     int // NonDir, SameStrand or AntiStrand
	Workers int
}

// Result holds the formatted summary and the classification-bucket sums.
type Result struct {
	Summary      string // header plus one row per processed region
	CleanSum     float64
	KnownExonSum float64
	AntiSenseSum float64
	dir          int
}

// QC formats the classification-bucket intron-depth sums.
func (r *Result) QC() string {
	var b strings.Builder
	if r.dir == NonDir {
		fmt.Fprintf(&b, "Non-Directional Clean IntronDepth Sum\t%g\n", r.CleanSum)
		fmt.Fprintf(&b, "Non-Directional Known-Exon IntronDepth Sum\t%g\n", r.KnownExonSum)
		fmt.Fprintf(&b, "Non-Directional Anti-Sense IntronDepth Sum\t%g\n", r.AntiSenseSum)
	} else {
		fmt.Fprintf(&b, "Directional Clean IntronDepth Sum\t%g\n", r.CleanSum)
		fmt.Fprintf(&b, "Directional Known-Exon IntronDepth Sum\t%g\n", r.KnownExonSum)
	}
	return b.String()
}

const columns = "Start\tEnd\tName\tNull\tStrand\tExcludedBases\tCoverage\t" +
	"IntronDepth\tIntronDepth25Percentile\tIntronDepth50Percentile\tIntronDepth75Percentile\t" +
	"ExonToIntronReadsLeft\tExonToIntronReadsRight\tIntronDepthFirst50bp\tIntronDepthLast50bp\t" +
	"SpliceLeft\tSpliceRight\tSpliceExact\tIRratio\tWarnings\n"

// Run processes the catalog against a finalized coverage map. Malformed
// region metadata is reported and skipped, never fatal.
func Run(cat []regions.Region, fm *fragmap.Map, jc JunctionCounts, sp SpanCounts, opts Options) (*Result, error) {
	if opts.Workers < 1 {
		return nil, fmt.Errorf("summarize: need at least 1 worker, got %d", opts.Workers)
	}
	if !fm.Finalized() {
		return nil, fmt.Errorf("summarize: coverage map must be finalized before summarizing")
	}

	reg := fm.Registry()
	chunk := 1 + len(cat)/opts.Workers
	bufs := make([]bytes.Buffer, opts.Workers)
	sums := make([][3]float64, opts.Workers)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(cat) {
			hi = len(cat)
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			st := worker{fm: fm, jc: jc, sp: sp, dir: opts.Dir, buf: &bufs[w]}
			for j := lo; j < hi; j++ {
				st.region(cat[j], j, reg)
			}
			sums[w] = st.sums
		}(w, lo, hi)
	}
	wg.Wait()

	res := &Result{dir: opts.Dir}
	var b strings.Builder
	if opts.Dir == NonDir {
		b.WriteString("Nondir_Chr\t" + columns)
	} else {
		b.WriteString("Dir_Chr\t" + columns)
	}
	parts := make([][]float64, 3)
	for w := range sums {
		b.Write(bufs[w].Bytes())
		for k := 0; k < 3; k++ {
			parts[k] = append(parts[k], sums[w][k])
		}
	}
	res.Summary = b.String()
	res.CleanSum = floats.Sum(parts[0])
	res.KnownExonSum = floats.Sum(parts[1])
	res.AntiSenseSum = floats.Sum(parts[2])
	return res, nil
}

// worker holds one chunk's private state.
type worker struct {
	fm   *fragmap.Map
	jc   JunctionCounts
	sp   SpanCounts
	dir  int
	buf  *bytes.Buffer
	sums [3]float64 // clean, known-exon, anti-sense

	// chromosome cache for runs of same-chromosome regions.
	curChrom string
	refID    uint32
}

func (st *worker) region(r regions.Region, j int, reg *chroms.Registry) {
	if st.dir == NonDir {
		if !strings.HasPrefix(r.Name, "nd/") {
			return
		}
	} else if !strings.HasPrefix(r.Name, "dir/") {
		return
	}

	meta, err := regions.ParseMeta(r.Name)
	if err != nil {
		badRecord(j, err)
		return
	}

	if r.Chrom != st.curChrom {
		st.curChrom = r.Chrom
		id, ok := reg.RefIndex(r.Chrom)
		if !ok {
			// out-of-range index; queries then count the span at depth 0.
			id = uint32(reg.Len())
		}
		st.refID = id
	}

	measureRev := r.Reverse
	if st.dir == AntiStrand {
		measureRev = !r.Reverse
	}
	ch := fragmap.Unstranded
	if st.dir != NonDir {
		ch = fragmap.Forward
		if measureRev {
			ch = fragmap.Reverse
		}
	}

	hist := covstats.Hist{}
	for _, b := range r.Blocks {
		st.fm.UpdateHist(hist, ch, st.refID, b[0], b[0]+b[1])
	}
	tm := covstats.TrimmedMean(hist, trimPercent)
	coverage := covstats.CoverageFraction(hist)

	strand := "+"
	if r.Reverse {
		strand = "-"
	}
	fmt.Fprintf(st.buf, "%s\t%d\t%d\t%s/%s/%s\t0\t%s\t%d\t%g\t%g\t%g\t%g\t%g\t",
		r.Chrom, meta.IntronStart, meta.IntronEnd, meta.GeneName, meta.GeneID, meta.Class,
		strand, meta.ExclBases, coverage, tm,
		covstats.Percentile(hist, 25), covstats.Percentile(hist, 50), covstats.Percentile(hist, 75))

	switch {
	case meta.IsClean():
		st.sums[0] += tm
	case meta.IsKnownExon():
		st.sums[1] += tm
	case st.dir == NonDir:
		st.sums[2] += tm
	}

	spLeft := st.sp.Spans(r.Chrom, meta.IntronStart, ch)
	spRight := st.sp.Spans(r.Chrom, meta.IntronEnd, ch)
	fmt.Fprintf(st.buf, "%d\t%d\t", spLeft, spRight)

	fmt.Fprintf(st.buf, "%g\t%g\t", st.edgeDepth(ch, meta.IntronStart+edgeInset, meta.IntronStart+edgeInset+edgeWidth),
		st.edgeDepth(ch, meta.IntronEnd-edgeInset-edgeWidth, meta.IntronEnd-edgeInset))

	jcLeft := st.jc.Left(r.Chrom, meta.IntronStart, ch)
	jcRight := st.jc.Right(r.Chrom, meta.IntronEnd, ch)
	jcExact := st.jc.Exact(r.Chrom, meta.IntronStart, meta.IntronEnd, ch)
	fmt.Fprintf(st.buf, "%d\t%d\t%d\t", jcLeft, jcRight, jcExact)

	fmt.Fprintf(st.buf, "%g\t%s\n", irRatio(tm, coverage, jcLeft, jcRight),
		classify(tm, jcLeft, jcRight, jcExact, spLeft, spRight))
}

// edgeDepth is the trimmed mean depth over one 50bp boundary window.
func (st *worker) edgeDepth(ch fragmap.Channel, start, end uint32) float64 {
	hist := covstats.Hist{}
	st.fm.UpdateHist(hist, ch, st.refID, start, end)
	return covstats.TrimmedMean(hist, trimPercent)
}

// irRatio relates intron depth to the strongest boundary junction evidence.
// Below one read of trimmed depth the coverage fraction stands in for depth.
func irRatio(tm, coverage float64, jcLeft, jcRight int) float64 {
	maxJ := float64(jcLeft)
	if jcRight > jcLeft {
		maxJ = float64(jcRight)
	}
	if tm == 0 && maxJ == 0 {
		return 0
	}
	if tm < 1 {
		return coverage / (coverage + maxJ)
	}
	return tm / (tm + maxJ)
}

// classify labels a region by precedence: total evidence, exact-splice
// evidence, exact vs boundary-crossing balance, then boundary crossings vs
// interior depth (a crossing must differ by more than 2 units and more than
// 50% before a fault is called).
func classify(tm float64, jcLeft, jcRight, jcExact, spLeft, spRight int) string {
	maxJ := jcLeft
	if jcRight > maxJ {
		maxJ = jcRight
	}
	maxSP, minSP := spLeft, spRight
	if spRight > spLeft {
		maxSP, minSP = spRight, spLeft
	}
	switch {
	case float64(jcExact)+tm < lowCoverDepth:
		return "LowCover"
	case jcExact < lowSpliceExact:
		return "LowSplicing"
	case float64(jcExact)*minorIsoformFrac < float64(maxJ):
		return "MinorIsoform"
	case (float64(maxSP) > tm+nonUniformUnits && float64(maxSP) > tm*nonUniformFactor) ||
		(float64(minSP)+nonUniformUnits < tm && float64(minSP)*nonUniformFactor < tm):
		return "NonUniformIntronCover"
	}
	return "-"
}

func badRecord(j int, err error) {
	c := color.New(color.FgRed).Add(color.Bold)
	fmt.Fprintf(os.Stderr, "%s\n", c.SprintFunc()(
		fmt.Sprintf("summarize: format error in name field of record %d: %v", j, err)))
}
