// Package regions loads the blocked-region reference catalog: named,
// strand-tagged intervals (introns after exon trimming) whose sub-blocks are
// the spans actually measured for coverage.
package regions

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brentp/xopen"
)

// Region is one catalog entry. Blocks are absolute (start, length) pairs.
type Region struct {
	Chrom   string
	Start   uint32
	End     uint32
	Name    string
	Reverse bool
	Blocks  [][2]uint32
}

// ReadBED reads the BED12-like reference catalog. A line missing the trailing
// block-size/block-start lists marks end of input and is not an error.
func ReadBED(path string) ([]Region, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	return parseBED(rdr)
}

func parseBED(rdr interface{ ReadString(byte) (string, error) }) ([]Region, error) {
	var regs []Region
	iline := 0
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		iline++
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			if err == io.EOF {
				break
			}
			continue
		}
		toks := strings.Split(line, "\t")
		if len(toks) < 12 {
			// truncated trailing record: treat as end of input.
			break
		}
		r := Region{Chrom: toks[0], Name: toks[3], Reverse: toks[5] != "+"}
		start, err2 := strconv.Atoi(toks[1])
		if err2 != nil {
			return nil, fmt.Errorf("regions: unable to parse start (%s) at line %d", toks[1], iline)
		}
		end, err2 := strconv.Atoi(toks[2])
		if err2 != nil {
			return nil, fmt.Errorf("regions: unable to parse end (%s) at line %d", toks[2], iline)
		}
		r.Start, r.End = uint32(start), uint32(end)
		nBlocks, err2 := strconv.Atoi(toks[9])
		if err2 != nil {
			return nil, fmt.Errorf("regions: unable to parse block count (%s) at line %d", toks[9], iline)
		}
		sizes := strings.Split(strings.TrimSuffix(toks[10], ","), ",")
		starts := strings.Split(strings.TrimSuffix(toks[11], ","), ",")
		if len(sizes) < nBlocks || len(starts) < nBlocks {
			break
		}
		for i := 0; i < nBlocks; i++ {
			off, err2 := strconv.Atoi(starts[i])
			if err2 != nil {
				return nil, fmt.Errorf("regions: unable to parse block start (%s) at line %d", starts[i], iline)
			}
			size, err2 := strconv.Atoi(sizes[i])
			if err2 != nil {
				return nil, fmt.Errorf("regions: unable to parse block size (%s) at line %d", sizes[i], iline)
			}
			r.Blocks = append(r.Blocks, [2]uint32{r.Start + uint32(off), uint32(size)})
		}
		regs = append(regs, r)
		if err == io.EOF {
			break
		}
	}
	return regs, nil
}

// Meta is the slash-delimited metadata carried in a region's name column:
// tag/geneName/geneID/strand/index/intronStart/intronEnd/length/exclBases/class
type Meta struct {
	Tag         string // "dir" or "nd"
	GeneName    string
	GeneID      string
	IntronStart uint32
	IntronEnd   uint32
	ExclBases   uint32
	Class       string
}

// ParseMeta parses a region name's metadata. Numeric parse failures are
// returned for the caller to report against the record index.
func ParseMeta(name string) (Meta, error) {
	toks := strings.Split(name, "/")
	if len(toks) < 10 {
		return Meta{}, fmt.Errorf("regions: expected 10 name fields, got %d", len(toks))
	}
	m := Meta{Tag: toks[0], GeneName: toks[1], GeneID: toks[2], Class: toks[9]}
	start, err := strconv.Atoi(toks[5])
	if err != nil {
		return Meta{}, fmt.Errorf("regions: unable to parse intron start (%s)", toks[5])
	}
	end, err := strconv.Atoi(toks[6])
	if err != nil {
		return Meta{}, fmt.Errorf("regions: unable to parse intron end (%s)", toks[6])
	}
	excl, err := strconv.Atoi(toks[8])
	if err != nil {
		return Meta{}, fmt.Errorf("regions: unable to parse excluded bases (%s)", toks[8])
	}
	m.IntronStart, m.IntronEnd, m.ExclBases = uint32(start), uint32(end), uint32(excl)
	return m, nil
}

// IsClean reports the clean classification (exact match on the prefix).
func (m Meta) IsClean() bool {
	return strings.HasPrefix(m.Class, "clean")
}

// IsKnownExon reports the known-exon classification (substring match).
func (m Meta) IsKnownExon() bool {
	return strings.Contains(m.Class, "known-exon")
}
