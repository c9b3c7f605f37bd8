// Package fragmap builds a strand-aware per-base coverage map from aligned
// fragment blocks and answers depth-histogram queries over regions.
//
// A Map accumulates (position, +1/-1) events per strand channel and
// chromosome, periodically collapsing them to bound memory, and on Finalize
// converts them to canonical run-length segments: strictly increasing
// positions with no two adjacent segments at the same depth. Depth before the
// first segment is 0 and the last segment's depth extends to the chromosome
// end. Maps built by parallel workers are merged with Combine before
// finalizing; a finalized map is read-only.
package fragmap

import (
	"sort"
	"sync"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/covstats"
)

// Channel selects one of the three depth sub-maps. The reverse strand is
// channel 0 and the forward strand channel 1, matching the aligner's
// direction flag; Unstranded is the union of both.
type Channel int

const (
	Reverse    Channel = 0
	Forward    Channel = 1
	Unstranded Channel = 2

	nChannels = 3
)

// DefaultCompactEvery is the fragment interval between in-ingest compactions.
const DefaultCompactEvery = 1000000

// Segment is one run-length entry: Depth holds from Pos up to the next
// segment's position.
type Segment struct {
	Pos   uint32
	Depth int32
}

// Fragment is one sequenced fragment's aligned blocks: absolute (start,
// length) pairs covering all mates, on one chromosome.
type Fragment struct {
	RefIndex uint32
	Reverse  bool
	Blocks   [][2]uint32
}

// Interval is a low-coverage span reported by LowCoverage.
type Interval struct {
	Chrom string
	Start uint32
	End   uint32
}

type posDelta struct {
	pos   uint32
	delta int32
}

// unit is one (channel, chromosome) pair's storage.
type unit struct {
	events []posDelta // raw ingest buffer
	deltas []posDelta // compacted net deltas
	segs   []Segment  // canonical run-length form, set by Finalize
}

// Map is the coverage engine. It is either accumulating (events/deltas hold
// data) or finalized (segs hold data); Finalize moves it from the first state
// to the second, once.
type Map struct {
	reg          *chroms.Registry
	units        [nChannels][]unit
	fragCount    int
	compactEvery int
	finalized    bool
}

// New returns an accumulating map over the registry's chromosomes.
// compactEvery <= 0 selects DefaultCompactEvery.
func New(reg *chroms.Registry, compactEvery int) *Map {
	if compactEvery <= 0 {
		compactEvery = DefaultCompactEvery
	}
	m := &Map{reg: reg, compactEvery: compactEvery}
	for j := 0; j < nChannels; j++ {
		m.units[j] = make([]unit, reg.Len())
	}
	return m
}

// Registry returns the chromosome registry the map was built over.
func (m *Map) Registry() *chroms.Registry {
	return m.reg
}

// Finalized reports whether Finalize has run.
func (m *Map) Finalized() bool {
	return m.finalized
}

// ProcessFragment records one fragment's blocks on the strand channel and the
// unstranded channel. Every compactEvery fragments the ingest buffers are
// compacted.
func (m *Map) ProcessFragment(frag Fragment) {
	if m.finalized {
		panic("fragmap: ProcessFragment after Finalize")
	}
	ch := Forward
	if frag.Reverse {
		ch = Reverse
	}
	stranded := &m.units[ch][frag.RefIndex]
	both := &m.units[Unstranded][frag.RefIndex]
	for _, b := range frag.Blocks {
		start, end := b[0], b[0]+b[1]
		stranded.events = append(stranded.events, posDelta{start, 1}, posDelta{end, -1})
		both.events = append(both.events, posDelta{start, 1}, posDelta{end, -1})
	}
	m.fragCount++
	if m.fragCount%m.compactEvery == 0 {
		m.Compact()
	}
}

// Compact sorts each non-empty ingest buffer, sums deltas sharing a position
// into one net delta, and appends the nets to the accumulated-delta buffer.
// It only bounds memory: finalized output is identical whether Compact runs
// after every fragment or never.
func (m *Map) Compact() {
	for j := range m.units {
		for i := range m.units[j] {
			u := &m.units[j][i]
			if len(u.events) == 0 {
				continue
			}
			u.deltas = append(u.deltas, collapse(u.events)...)
			u.events = nil
		}
	}
}

// collapse sorts events by position and nets out deltas at equal positions,
// dropping positions that net to zero. Delta order within a position does not
// matter: same-position deltas are summed before any prefix sum happens.
func collapse(events []posDelta) []posDelta {
	sort.Slice(events, func(a, b int) bool { return events[a].pos < events[b].pos })
	out := events[:0]
	pos := events[0].pos
	accum := int32(0)
	for _, e := range events {
		if e.pos != pos {
			if accum != 0 {
				out = append(out, posDelta{pos, accum})
			}
			pos = e.pos
			accum = 0
		}
		accum += e.delta
	}
	if accum != 0 {
		out = append(out, posDelta{pos, accum})
	}
	return out
}

// Combine folds other's accumulated data into m, leaving other consumed.
// Both maps must still be accumulating: once either side is finalized its
// segments hold absolute depths, which cannot be merged by concatenation, so
// combining then is a hard error.
func (m *Map) Combine(other *Map) {
	if m.finalized || other.finalized {
		panic("fragmap: Combine after Finalize")
	}
	m.Compact()
	other.Compact()
	for j := range m.units {
		for i := range m.units[j] {
			ou := &other.units[j][i]
			m.units[j][i].deltas = append(m.units[j][i].deltas, ou.deltas...)
			ou.deltas = nil
		}
	}
	m.fragCount += other.fragCount
}

// Finalize converts every (channel, chromosome) unit to canonical run-length
// segments, fanning the independent units out over the given number of
// workers. Calling it on an already finalized map is a no-op.
func (m *Map) Finalize(workers int) {
	if m.finalized {
		return
	}
	m.Compact()
	if workers < 1 {
		workers = 1
	}
	type job struct{ j, i int }
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				u := &m.units[jb.j][jb.i]
				u.segs = finalizeUnit(u.deltas)
				u.deltas = nil
			}
		}()
	}
	for j := range m.units {
		for i := range m.units[j] {
			jobs <- job{j, i}
		}
	}
	close(jobs)
	wg.Wait()
	m.finalized = true
}

// finalizeUnit sorts the accumulated deltas, prefix-sums them into absolute
// depth, and emits a segment only where the depth changes from the last
// emitted depth. Depth 0 before the first segment is implicit, so a run
// starting at depth 0 never emits a leading segment.
func finalizeUnit(deltas []posDelta) []Segment {
	if len(deltas) == 0 {
		return nil
	}
	// the buffer may hold several nets at one position when compactions or
	// merges overlapped; collapse nets them again.
	deltas = collapse(deltas)
	segs := make([]Segment, 0, len(deltas))
	depth := int32(0)
	prev := int32(0)
	for _, d := range deltas {
		depth += d.delta
		if depth != prev {
			segs = append(segs, Segment{d.pos, depth})
			prev = depth
		}
	}
	return segs
}

// UpdateHist adds the depth distribution of [start, end) on the given channel
// and chromosome into hist. A chromosome with no data counts the whole range
// at depth 0. The map must be finalized.
func (m *Map) UpdateHist(hist covstats.Hist, ch Channel, refIndex uint32, start, end uint32) {
	if !m.finalized {
		panic("fragmap: UpdateHist before Finalize")
	}
	if start >= end {
		return
	}
	if int(refIndex) >= len(m.units[ch]) {
		hist[0] += int(end - start)
		return
	}
	segs := m.units[ch][refIndex].segs
	// find the last segment at or before start; depth is 0 before it.
	i := sort.Search(len(segs), func(k int) bool { return segs[k].Pos > start }) - 1
	depth := int32(0)
	if i >= 0 {
		depth = segs[i].Depth
	}
	cursor := start
	for cursor < end {
		if i+1 >= len(segs) {
			hist[int(depth)] += int(end - cursor)
			return
		}
		next := segs[i+1].Pos
		if next > end {
			next = end
		}
		hist[int(depth)] += int(next - cursor)
		cursor = segs[i+1].Pos
		depth = segs[i+1].Depth
		i++
	}
}

// Segments returns the finalized run-length sequence for one channel and
// chromosome, for serialization. The map must be finalized.
func (m *Map) Segments(ch Channel, refIndex uint32) []Segment {
	if !m.finalized {
		panic("fragmap: Segments before Finalize")
	}
	return m.units[ch][refIndex].segs
}

// LowCoverage finalizes the map if needed and returns, in presentation
// order, the maximal spans of the unstranded channel at or below threshold.
// Spans are closed at the chromosome length.
func (m *Map) LowCoverage(threshold int32) []Interval {
	m.Finalize(1)
	var out []Interval
	for _, e := range m.reg.Presentation() {
		segs := m.units[Unstranded][e.RefIndex].segs
		lowStart := uint32(0)
		inLow := true // implicit depth 0 at position 0
		if len(segs) > 0 && segs[0].Pos == 0 && segs[0].Depth > threshold {
			inLow = false
		}
		for _, s := range segs {
			if s.Depth > threshold {
				if inLow {
					out = append(out, Interval{e.Name, lowStart, s.Pos})
					inLow = false
				}
			} else if !inLow {
				lowStart = s.Pos
				inLow = true
			}
		}
		if inLow && lowStart < e.Length {
			out = append(out, Interval{e.Name, lowStart, e.Length})
		}
	}
	return out
}
