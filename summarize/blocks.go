package summarize

import (
	"fmt"
	"io"
	"log"

	"github.com/brentp/faidx"

	"github.com/bioc/NxtIRFcore/covstats"
	"github.com/bioc/NxtIRFcore/fragmap"
	"github.com/bioc/NxtIRFcore/regions"
)

// BlockOptions configures the generic per-region block summary.
type BlockOptions struct {
	Dir int
	// Fa, when set, adds GC, CpG and masked fractions over the region span.
	Fa *faidx.Faidx
}

// WriteBlockSummary writes one generic row per catalog region: measured
// length, base totals, trimmed means at 50% and 20%, coverage fraction, mean
// and quartiles. Unlike Run it applies no name-tag filter.
func WriteBlockSummary(w io.Writer, cat []regions.Region, fm *fragmap.Map, opts BlockOptions) error {
	if !fm.Finalized() {
		return fmt.Errorf("summarize: coverage map must be finalized before summarizing")
	}
	reg := fm.Registry()
	header := "#chrom\tstart\tend\tlength\tbases\tbins\ttrimmean50\ttrimmean20\tcoverage\tmean\tpct25\tpct50\tpct75\tstrand\tname"
	if opts.Fa != nil {
		header += "\tGC\tCpG\tmasked"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	curChrom := ""
	refID := uint32(0)
	for _, r := range cat {
		if r.Chrom != curChrom {
			curChrom = r.Chrom
			id, ok := reg.RefIndex(r.Chrom)
			if !ok {
				id = uint32(reg.Len())
			}
			refID = id
		}
		ch := fragmap.Unstranded
		if opts.Dir != NonDir {
			rev := r.Reverse
			if opts.Dir == AntiStrand {
				rev = !rev
			}
			ch = fragmap.Forward
			if rev {
				ch = fragmap.Reverse
			}
		}

		length := uint32(0)
		hist := covstats.Hist{}
		for _, b := range r.Blocks {
			length += b[1]
			fm.UpdateHist(hist, ch, refID, b[0], b[0]+b[1])
		}
		strand := "+"
		if r.Reverse {
			strand = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%s\t%s",
			r.Chrom, r.Start, r.End, length, covstats.Size(hist), len(hist),
			covstats.TrimmedMean(hist, 50), covstats.TrimmedMean(hist, 20),
			covstats.CoverageFraction(hist), covstats.Mean(hist),
			covstats.Percentile(hist, 25), covstats.Percentile(hist, 50), covstats.Percentile(hist, 75),
			strand, r.Name)
		if opts.Fa != nil {
			st, err := opts.Fa.Stats(r.Chrom, int(r.Start), int(r.End))
			if err != nil {
				log.Println(err)
			}
			fmt.Fprintf(w, "\t%.3g\t%.3g\t%.3g", st.GC, st.CpG, st.Masked)
		}
		fmt.Fprintln(w)
	}
	return nil
}
