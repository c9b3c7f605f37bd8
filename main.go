package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/bioc/NxtIRFcore/histplot"
	"github.com/bioc/NxtIRFcore/mappability"
	"github.com/bioc/NxtIRFcore/summarize"
)

const Version = "0.1.0"

type progPair struct {
	help string
	main func()
}

var progs = map[string]progPair{
	"coverage":    progPair{"per-region coverage depth summary from bams/crams", summarize.Main},
	"mappability": progPair{"report low-coverage spans for mappability exclusion", mappability.Main},
	"histplot":    progPair{"plot the distribution of a summary column", histplot.Main},
}

func printProgs() {

	var wtr io.Writer = os.Stdout

	fmt.Fprintf(wtr, "nxtirf Version: %s\n\n", Version)
	var keys []string
	l := 5
	for k := range progs {
		keys = append(keys, k)
		if len(k) > l {
			l = len(k)
		}
	}
	fmtr := "%-" + strconv.Itoa(l) + "s : %s\n"
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(wtr, fmtr, k, progs[k].help)

	}
	os.Exit(1)

}

func main() {

	if len(os.Args) < 2 {
		printProgs()
	}
	var p progPair
	var ok bool
	if p, ok = progs[os.Args[1]]; !ok {
		printProgs()
	}
	// remove the prog name from the call
	os.Args = append(os.Args[:1], os.Args[2:]...)
	p.main()
}
