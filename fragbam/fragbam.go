// Package fragbam streams aligned records out of bam/cram files and feeds
// their block coordinates into per-worker coverage maps.
package fragbam

import (
	"io"

	"github.com/biogo/hts/sam"
	"github.com/biogo/store/interval"
	"github.com/brentp/smoove/shared"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/fragmap"
)

// Options configures ingest.
type Options struct {
	// Fasta is required for cram input.
	Fasta string
	// Exclude holds per-chromosome trees of regions whose fragments are
	// skipped (see ReadExclude).
	Exclude map[string]*interval.IntTree
	Workers int
	MinMapQ int
	// FlipStrand inverts the library strand assignment (fr-firststrand
	// protocols).
	FlipStrand bool
	// CompactEvery overrides the coverage-map compaction cadence; 0 keeps
	// the default.
	CompactEvery int
}

// Registry opens the first alignment file and builds the chromosome registry
// from its header.
func Registry(path string, fasta string) (*chroms.Registry, error) {
	br, err := shared.NewReader(path, 2, fasta)
	if err != nil {
		return nil, err
	}
	defer br.Close()
	return chroms.FromHeader(br.Header()), nil
}

// Ingest reads every path into one accumulating coverage map, fanning records
// out over opts.Workers maps and combining them before returning. The caller
// finalizes the returned map.
func Ingest(paths []string, reg *chroms.Registry, opts Options) (*fragmap.Map, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	maps := make([]*fragmap.Map, workers)
	for i := range maps {
		maps[i] = fragmap.New(reg, opts.CompactEvery)
	}

	frags := make(chan fragmap.Fragment, 1024)
	done := make(chan struct{})
	for i := range maps {
		go func(m *fragmap.Map) {
			for f := range frags {
				m.ProcessFragment(f)
			}
			done <- struct{}{}
		}(maps[i])
	}

	var rerr error
	for _, path := range paths {
		if rerr = readInto(path, frags, opts); rerr != nil {
			break
		}
	}
	close(frags)
	for range maps {
		<-done
	}
	if rerr != nil {
		return nil, rerr
	}

	for _, m := range maps[1:] {
		maps[0].Combine(m)
	}
	return maps[0], nil
}

func readInto(path string, frags chan<- fragmap.Fragment, opts Options) error {
	br, err := shared.NewReader(path, 2, opts.Fasta)
	if err != nil {
		return err
	}
	defer br.Close()
	for {
		rec, err := br.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary|sam.Duplicate|sam.QCFail) != 0 {
			continue
		}
		if int(rec.MapQ) < opts.MinMapQ {
			continue
		}
		blocks := alignedBlocks(rec)
		if len(blocks) == 0 {
			continue
		}
		if opts.Exclude != nil && overlapsAny(opts.Exclude[rec.Ref.Name()], blocks) {
			continue
		}
		frags <- fragmap.Fragment{
			RefIndex: uint32(rec.Ref.ID()),
			Reverse:  recReverse(rec, opts.FlipStrand),
			Blocks:   blocks,
		}
	}
}

// recReverse derives the fragment strand: read 1 orientation, mate flipped.
func recReverse(rec *sam.Record, flip bool) bool {
	rev := rec.Flags&sam.Reverse != 0
	if rec.Flags&sam.Read2 != 0 {
		rev = !rev
	}
	if flip {
		rev = !rev
	}
	return rev
}

// alignedBlocks converts a record's cigar to absolute (start, length) blocks.
// Match ops extend the current block, deletions bridge it, skips (introns)
// split it.
func alignedBlocks(rec *sam.Record) [][2]uint32 {
	var blocks [][2]uint32
	ref := uint32(rec.Pos)
	var start uint32
	open := false
	for _, co := range rec.Cigar {
		t := co.Type()
		if t.Consumes().Reference == 0 {
			continue
		}
		switch t {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarDeletion:
			if !open {
				start = ref
				open = true
			}
		default:
			if open {
				blocks = append(blocks, [2]uint32{start, ref - start})
				open = false
			}
		}
		ref += uint32(co.Len())
	}
	if open {
		blocks = append(blocks, [2]uint32{start, ref - start})
	}
	return blocks
}

func overlapsAny(tree *interval.IntTree, blocks [][2]uint32) bool {
	if tree == nil {
		return false
	}
	for _, b := range blocks {
		if Overlaps(tree, int(b[0]), int(b[0]+b[1])) {
			return true
		}
	}
	return false
}
