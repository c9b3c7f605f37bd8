package summarize

import (
	"fmt"
	"log"
	"runtime"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/faidx"
	"github.com/brentp/xopen"

	"github.com/bioc/NxtIRFcore/covfile"
	"github.com/bioc/NxtIRFcore/fragbam"
	"github.com/bioc/NxtIRFcore/fragmap"
	"github.com/bioc/NxtIRFcore/regions"
)

var cli = struct {
	Regions   string   `arg:"-r,required,help:blocked-region reference bed (may be gzipped)"`
	Junctions string   `arg:"-j,help:optional junction count table"`
	Spans     string   `arg:"-s,help:optional boundary-spanning read count table"`
	Exclude   string   `arg:"-e,help:optional bed of regions whose fragments are ignored"`
	Fasta     string   `arg:"-f,help:fasta file. required for cram format"`
	Dir       int      `arg:"-d,help:directionality. 0 unstranded; 1 stranded; -1 reverse-stranded"`
	Flip      bool     `arg:"help:flip the library strand assignment"`
	Q         int      `arg:"-Q,help:mapping quality cutoff"`
	Processes int      `arg:"-p,help:number of processes to parallelize."`
	Prefix    string   `arg:"required,help:prefix for output files"`
	Cov       bool     `arg:"help:also write binary coverage to prefix.cov"`
	Blocks    bool     `arg:"-b,help:also write the generic per-region block summary"`
	Stats     bool     `arg:"help:report sequence stats [GC CpG masked] in the block summary (needs -f)"`
	Threshold int      `arg:"-t,help:if >= 0 write mappability exclusions at or below this depth"`
	Bams      []string `arg:"positional,required,help:bams/crams for which to compute coverage"`
}{Dir: NonDir, Q: 1, Processes: runtime.GOMAXPROCS(0), Threshold: -1}

func pcheck(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

// Main is run from the dispatcher.
func Main() {
	p := arg.MustParse(&cli)
	if cli.Stats && cli.Fasta == "" {
		p.Fail("-stats requires a fasta (-f)")
	}

	cat, err := regions.ReadBED(cli.Regions)
	pcheck(err)

	reg, err := fragbam.Registry(cli.Bams[0], cli.Fasta)
	pcheck(err)
	excl, err := fragbam.ReadExclude(cli.Exclude)
	pcheck(err)

	fm, err := fragbam.Ingest(cli.Bams, reg, fragbam.Options{
		Fasta:      cli.Fasta,
		Exclude:    excl,
		Workers:    cli.Processes,
		MinMapQ:    cli.Q,
		FlipStrand: cli.Flip,
	})
	pcheck(err)
	fm.Finalize(cli.Processes)

	var jc JunctionCounts = ZeroCounts{}
	var sp SpanCounts = ZeroCounts{}
	if cli.Junctions != "" || cli.Spans != "" {
		t := NewTableCounts()
		if cli.Junctions != "" {
			pcheck(t.ReadJunctions(cli.Junctions))
		}
		if cli.Spans != "" {
			pcheck(t.ReadSpans(cli.Spans))
		}
		jc, sp = t, t
	}

	res, err := Run(cat, fm, jc, sp, Options{Dir: cli.Dir, Workers: cli.Processes})
	pcheck(err)

	writeString(cli.Prefix+".summary.txt", res.Summary)
	writeString(cli.Prefix+".qc.txt", res.QC())

	if cli.Blocks {
		var fa *faidx.Faidx
		if cli.Stats {
			fa, err = faidx.New(cli.Fasta)
			pcheck(err)
			defer fa.Close()
		}
		fh, err := xopen.Wopen(cli.Prefix + ".blocks.txt")
		pcheck(err)
		pcheck(WriteBlockSummary(fh, cat, fm, BlockOptions{Dir: cli.Dir, Fa: fa}))
		pcheck(fh.Close())
	}
	if cli.Cov {
		pcheck(covfile.Write(cli.Prefix+".cov", fm, cli.Processes))
	}
	if cli.Threshold >= 0 {
		writeLowCoverage(cli.Prefix+".exclusions.txt", fm, int32(cli.Threshold))
	}
}

func writeString(path, s string) {
	fh, err := xopen.Wopen(path)
	pcheck(err)
	_, err = fh.WriteString(s)
	pcheck(err)
	pcheck(fh.Close())
}

func writeLowCoverage(path string, fm *fragmap.Map, threshold int32) {
	fh, err := xopen.Wopen(path)
	pcheck(err)
	for _, iv := range fm.LowCoverage(threshold) {
		_, err = fmt.Fprintf(fh, "%s\t%d\t%d\n", iv.Chrom, iv.Start, iv.End)
		pcheck(err)
	}
	pcheck(fh.Close())
}
