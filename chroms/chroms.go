// Package chroms holds the chromosome registry shared by all coverage
// components. It maps chromosome names to the reference index used by the
// aligner and keeps a name-sorted presentation order for output.
package chroms

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/brentp/xopen"
)

// Entry describes one chromosome. RefIndex is the index used by the aligner
// and by all per-chromosome arrays; presentation order is name-sorted.
type Entry struct {
	Name     string
	Length   uint32
	RefIndex uint32
}

// Registry is built once at startup and read-only thereafter.
type Registry struct {
	entries []Entry // indexed by RefIndex
	byName  map[string]uint32
	present []Entry // name-sorted
}

// New builds a registry from entries in aligner order. RefIndex values are
// assigned from slice order when not already set.
func New(entries []Entry) *Registry {
	r := &Registry{
		entries: make([]Entry, len(entries)),
		byName:  make(map[string]uint32, len(entries)),
	}
	for i, e := range entries {
		e.RefIndex = uint32(i)
		r.entries[i] = e
		r.byName[e.Name] = e.RefIndex
	}
	r.present = make([]Entry, len(r.entries))
	copy(r.present, r.entries)
	sort.Slice(r.present, func(i, j int) bool { return r.present[i].Name < r.present[j].Name })
	return r
}

// FromHeader builds a registry from a bam header's references.
func FromHeader(h *sam.Header) *Registry {
	refs := h.Refs()
	entries := make([]Entry, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, Entry{Name: ref.Name(), Length: uint32(ref.Len())})
	}
	return New(entries)
}

// ReadFai builds a registry from a fasta .fai index; line order gives the
// reference index.
func ReadFai(path string) (*Registry, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	var entries []Entry
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}
		toks := strings.Split(line, "\t")
		if len(toks) < 2 {
			return nil, fmt.Errorf("chroms: expected at least 2 fields in fai, got %d", len(toks))
		}
		l, err := strconv.Atoi(toks[1])
		if err != nil {
			return nil, fmt.Errorf("chroms: unable to parse length (%s) for %s", toks[1], toks[0])
		}
		entries = append(entries, Entry{Name: toks[0], Length: uint32(l)})
	}
	return New(entries), nil
}

// RefIndex looks up the aligner index for a chromosome name.
func (r *Registry) RefIndex(name string) (uint32, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// At returns the entry for the given reference index.
func (r *Registry) At(refIndex uint32) Entry {
	return r.entries[refIndex]
}

// Presentation returns entries in name-sorted output order.
func (r *Registry) Presentation() []Entry {
	return r.present
}

// Len is the number of chromosomes.
func (r *Registry) Len() int {
	return len(r.entries)
}
