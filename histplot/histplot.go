// Package histplot plots the distribution of a numeric column of the region
// summary, one histogram series per warning label.
package histplot

import (
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/xopen"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var cli = struct {
	Col     string `arg:"-c,help:summary column to plot"`
	Bins    int    `arg:"-b,help:optional number of bins."`
	Path    string `arg:"-p,help:optional path to save plot."`
	Summary string `arg:"positional,required,help:summary file from the coverage command"`
}{Col: "IRratio", Bins: 20, Path: "histplot.png"}

func pcheck(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

// Main is run from the dispatcher.
func Main() {
	arg.MustParse(&cli)
	grouped, err := read(cli.Summary, cli.Col)
	pcheck(err)
	if len(grouped) == 0 {
		log.Fatalf("histplot: no numeric values in column %s of %s", cli.Col, cli.Summary)
	}
	pcheck(render(grouped, cli.Bins, cli.Path))
}

// read groups the chosen column's values by warning label. NaN cells
// (undefined statistics) are skipped.
func read(path, col string) (map[string][]float64, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	header, err := fh.ReadString('\n')
	if err != nil {
		return nil, err
	}
	names := strings.Split(strings.TrimSuffix(header, "\n"), "\t")
	vcol, wcol := -1, -1
	for i, name := range names {
		if name == col {
			vcol = i
		}
		if name == "Warnings" {
			wcol = i
		}
	}
	if vcol == -1 {
		log.Fatalf("histplot: no column %s in %s", col, path)
	}

	grouped := make(map[string][]float64)
	nErr := 0
	for {
		line, err := fh.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		toks := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
		if vcol >= len(toks) {
			continue
		}
		v, err := strconv.ParseFloat(toks[vcol], 64)
		if err != nil {
			if nErr < 5 {
				log.Println(err)
			}
			nErr++
			continue
		}
		if math.IsNaN(v) {
			continue
		}
		g := "all"
		if wcol != -1 && wcol < len(toks) {
			g = toks[wcol]
		}
		grouped[g] = append(grouped[g], v)
	}
	return grouped, nil
}

func mapkeys(m map[string][]float64) []string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func render(grouped map[string][]float64, bins int, path string) error {
	p := plot.New()
	p.X.Label.Text = cli.Col
	p.Y.Label.Text = "Count"

	w := float64(30/len(grouped)) * float64(20) / float64(bins)
	var bars []plot.Plotter

	for i, k := range mapkeys(grouped) {
		tmp, err := plotter.NewHist(plotter.Values(grouped[k]), bins)
		if err != nil {
			return err
		}
		vals := make([]float64, len(tmp.Bins))
		for j, b := range tmp.Bins {
			vals[j] = b.Weight
		}
		bar, err := plotter.NewBarChart(plotter.Values(vals), vg.Points(w+0.01))
		if err != nil {
			return err
		}
		bar.LineStyle.Width = vg.Length(0.1)
		bar.Color = plotutil.Color(i)
		bar.Offset = vg.Points(float64(i) * w)
		p.Legend.Add(k, bar)
		bars = append(bars, bar)
	}
	p.Add(bars...)
	p.Legend.Top = true
	return p.Save(10*vg.Inch, 3*vg.Inch, path)
}
