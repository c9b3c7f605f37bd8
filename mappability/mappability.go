// Package mappability reports the maximal genome spans whose unstranded
// coverage is at or below a depth threshold, as tab-separated bed rows in
// chromosome presentation order. Run against an alignment of synthetic
// reads, the output is the low-mappability exclusion list.
package mappability

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"runtime"

	arg "github.com/alexflint/go-arg"

	"github.com/bioc/NxtIRFcore/fragbam"
)

var cli = struct {
	Threshold int      `arg:"-t,help:maximum depth reported as low coverage"`
	Fasta     string   `arg:"-f,help:fasta file. required for cram format"`
	Q         int      `arg:"-Q,help:mapping quality cutoff"`
	Processes int      `arg:"-p,help:number of processes to parallelize."`
	Bams      []string `arg:"positional,required,help:bams/crams of the mappability alignment"`
}{Threshold: 4, Q: 1, Processes: runtime.GOMAXPROCS(0)}

func pcheck(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

// Main is run from the dispatcher.
func Main() {
	arg.MustParse(&cli)

	reg, err := fragbam.Registry(cli.Bams[0], cli.Fasta)
	pcheck(err)
	fm, err := fragbam.Ingest(cli.Bams, reg, fragbam.Options{
		Fasta:   cli.Fasta,
		Workers: cli.Processes,
		MinMapQ: cli.Q,
	})
	pcheck(err)
	fm.Finalize(cli.Processes)

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()
	for _, iv := range fm.LowCoverage(int32(cli.Threshold)) {
		fmt.Fprintf(stdout, "%s\t%d\t%d\n", iv.Chrom, iv.Start, iv.End)
	}
}
