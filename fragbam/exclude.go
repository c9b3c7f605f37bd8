package fragbam

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/biogo/store/interval"
	"github.com/brentp/xopen"
)

// Integer-specific intervals for the exclusion trees.
type irange struct {
	Start, End int
	UID        uintptr
}

func (i irange) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.End > b.Start && i.Start < b.End
}
func (i irange) ID() uintptr              { return i.UID }
func (i irange) Range() interval.IntRange { return interval.IntRange{Start: i.Start, End: i.End} }

// Overlaps checks for overlaps without pulling intervals from the tree.
func Overlaps(tree *interval.IntTree, start, end int) bool {
	if tree == nil {
		return false
	}
	q := irange{Start: start, End: end, UID: uintptr(tree.Len())}
	overlaps := false
	tree.DoMatching(func(iv interval.IntInterface) bool {
		overlaps = true
		return true
	}, q)
	return overlaps
}

// ReadExclude reads a bed file of regions whose fragments should be ignored
// during ingest and returns a map of trees keyed by chromosome.
func ReadExclude(p string) (map[string]*interval.IntTree, error) {
	if p == "" {
		return nil, nil
	}
	r, err := xopen.Ropen(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	tree := make(map[string]*interval.IntTree, 10)
	k := 0
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		toks := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
		if len(toks) < 3 {
			return nil, fmt.Errorf("fragbam: expected 3 bed fields, got %d", len(toks))
		}
		start, err := strconv.Atoi(toks[1])
		if err != nil {
			return nil, fmt.Errorf("fragbam: unable to parse start (%s)", toks[1])
		}
		end, err := strconv.Atoi(toks[2])
		if err != nil {
			return nil, fmt.Errorf("fragbam: unable to parse end (%s)", toks[2])
		}
		if _, ok := tree[toks[0]]; !ok {
			tree[toks[0]] = &interval.IntTree{}
		}
		tree[toks[0]].Insert(irange{start, end, uintptr(k)}, false)
		k++
	}
	log.Printf("read %d exclusion intervals", k)
	return tree, nil
}
