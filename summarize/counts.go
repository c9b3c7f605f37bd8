package summarize

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brentp/xopen"

	"github.com/bioc/NxtIRFcore/fragmap"
)

// SpanCounts reports reads crossing a single boundary position. The channel
// selects the strand of the evidence; Unstranded ignores strand.
type SpanCounts interface {
	Spans(chrom string, pos uint32, ch fragmap.Channel) int
}

// JunctionCounts reports splice-junction evidence at region boundaries:
// junctions starting at a left boundary, ending at a right boundary, or
// matching both ends exactly.
type JunctionCounts interface {
	Left(chrom string, pos uint32, ch fragmap.Channel) int
	Right(chrom string, pos uint32, ch fragmap.Channel) int
	Exact(chrom string, start, end uint32, ch fragmap.Channel) int
}

// ZeroCounts satisfies both lookup interfaces with no evidence.
type ZeroCounts struct{}

func (ZeroCounts) Spans(string, uint32, fragmap.Channel) int         { return 0 }
func (ZeroCounts) Left(string, uint32, fragmap.Channel) int          { return 0 }
func (ZeroCounts) Right(string, uint32, fragmap.Channel) int         { return 0 }
func (ZeroCounts) Exact(string, uint32, uint32, fragmap.Channel) int { return 0 }

type pointKey struct {
	chrom string
	pos   uint32
	ch    fragmap.Channel
}

type spanKey struct {
	chrom      string
	start, end uint32
	ch         fragmap.Channel
}

// TableCounts is a map-backed implementation of both lookup interfaces,
// loaded from tab-separated junction and span tables.
type TableCounts struct {
	left  map[pointKey]int
	right map[pointKey]int
	exact map[spanKey]int
	spans map[pointKey]int
}

// NewTableCounts returns an empty table.
func NewTableCounts() *TableCounts {
	return &TableCounts{
		left:  make(map[pointKey]int),
		right: make(map[pointKey]int),
		exact: make(map[spanKey]int),
		spans: make(map[pointKey]int),
	}
}

func parseStrand(s string) (fragmap.Channel, error) {
	switch s {
	case "+":
		return fragmap.Forward, nil
	case "-":
		return fragmap.Reverse, nil
	case ".":
		return fragmap.Unstranded, nil
	}
	return 0, fmt.Errorf("summarize: unknown strand %q", s)
}

// ReadJunctions loads rows of (chrom, start, end, strand, count). Each row
// contributes to the exact table and to the left/right tables at its ends,
// on its own strand and on the unstranded channel.
func (t *TableCounts) ReadJunctions(path string) error {
	return t.readRows(path, 5, func(chrom string, nums []uint32, ch fragmap.Channel, count int) {
		start, end := nums[0], nums[1]
		for _, c := range channelsFor(ch) {
			t.left[pointKey{chrom, start, c}] += count
			t.right[pointKey{chrom, end, c}] += count
			t.exact[spanKey{chrom, start, end, c}] += count
		}
	})
}

// ReadSpans loads rows of (chrom, pos, strand, count) for boundary-crossing
// reads.
func (t *TableCounts) ReadSpans(path string) error {
	return t.readRows(path, 4, func(chrom string, nums []uint32, ch fragmap.Channel, count int) {
		for _, c := range channelsFor(ch) {
			t.spans[pointKey{chrom, nums[0], c}] += count
		}
	})
}

// channelsFor expands a row's strand to the channels it should count on.
func channelsFor(ch fragmap.Channel) []fragmap.Channel {
	if ch == fragmap.Unstranded {
		return []fragmap.Channel{fragmap.Unstranded}
	}
	return []fragmap.Channel{ch, fragmap.Unstranded}
}

func (t *TableCounts) readRows(path string, nFields int, add func(string, []uint32, fragmap.Channel, int)) error {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return err
	}
	defer rdr.Close()
	iline := 0
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		iline++
		line = strings.TrimSuffix(line, "\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		toks := strings.Split(line, "\t")
		if len(toks) < nFields {
			return fmt.Errorf("summarize: expected %d fields at line %d, got %d", nFields, iline, len(toks))
		}
		nums := make([]uint32, nFields-3)
		for i := range nums {
			v, err := strconv.Atoi(toks[1+i])
			if err != nil {
				return fmt.Errorf("summarize: unable to parse position (%s) at line %d", toks[1+i], iline)
			}
			nums[i] = uint32(v)
		}
		ch, err := parseStrand(toks[nFields-2])
		if err != nil {
			return fmt.Errorf("%v at line %d", err, iline)
		}
		count, err := strconv.Atoi(toks[nFields-1])
		if err != nil {
			return fmt.Errorf("summarize: unable to parse count (%s) at line %d", toks[nFields-1], iline)
		}
		add(toks[0], nums, ch, count)
	}
	return nil
}

func (t *TableCounts) Spans(chrom string, pos uint32, ch fragmap.Channel) int {
	return t.spans[pointKey{chrom, pos, ch}]
}

func (t *TableCounts) Left(chrom string, pos uint32, ch fragmap.Channel) int {
	return t.left[pointKey{chrom, pos, ch}]
}

func (t *TableCounts) Right(chrom string, pos uint32, ch fragmap.Channel) int {
	return t.right[pointKey{chrom, pos, ch}]
}

func (t *TableCounts) Exact(chrom string, start, end uint32, ch fragmap.Channel) int {
	return t.exact[spanKey{chrom, start, end, ch}]
}
