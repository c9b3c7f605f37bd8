// Package covfile serializes a finalized coverage map to a bgzf-compressed
// binary file and reads it back.
//
// Layout (all integers little-endian, inside a bgzf stream):
//
//	magic "NIRFCOV1"
//	uint32 chromosome count
//	per chromosome, in presentation order: uint32 name length, name bytes,
//	uint32 chromosome length
//	per channel (reverse, forward, unstranded) x presentation-order
//	chromosome: uint32 segment count, then (uint32 pos, int32 depth) pairs
package covfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"

	"github.com/bioc/NxtIRFcore/chroms"
	"github.com/bioc/NxtIRFcore/fragmap"
)

var magic = [8]byte{'N', 'I', 'R', 'F', 'C', 'O', 'V', '1'}

const nChannels = 3

// File is the decoded form returned by Read. Data is indexed by channel then
// by presentation-order chromosome.
type File struct {
	Chroms []chroms.Entry
	Data   [nChannels][][]fragmap.Segment
}

// Write finalizes nothing: the map must already be finalized. The workers
// hint is passed to the bgzf compressor.
func Write(path string, fm *fragmap.Map, workers int) error {
	if !fm.Finalized() {
		return fmt.Errorf("covfile: coverage map must be finalized before writing")
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}
	bgz := bgzf.NewWriter(fh, workers)

	reg := fm.Registry()
	present := reg.Presentation()
	if err := writeHeader(bgz, present); err != nil {
		return err
	}
	for ch := 0; ch < nChannels; ch++ {
		for _, e := range present {
			segs := fm.Segments(fragmap.Channel(ch), e.RefIndex)
			if err := binary.Write(bgz, binary.LittleEndian, uint32(len(segs))); err != nil {
				return err
			}
			if err := binary.Write(bgz, binary.LittleEndian, segs); err != nil {
				return err
			}
		}
	}
	if err := bgz.Close(); err != nil {
		return err
	}
	return fh.Close()
}

func writeHeader(w io.Writer, present []chroms.Entry) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(present))); err != nil {
		return err
	}
	for _, e := range present {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Name))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Length); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a coverage file.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	bgz, err := bgzf.NewReader(fh, 1)
	if err != nil {
		return nil, err
	}
	defer bgz.Close()

	var got [8]byte
	if _, err := io.ReadFull(bgz, got[:]); err != nil {
		return nil, err
	}
	if !bytes.Equal(got[:], magic[:]) {
		return nil, fmt.Errorf("covfile: bad magic %q in %s", got, path)
	}
	var n uint32
	if err := binary.Read(bgz, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	f := &File{Chroms: make([]chroms.Entry, n)}
	for i := range f.Chroms {
		var nameLen uint32
		if err := binary.Read(bgz, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(bgz, name); err != nil {
			return nil, err
		}
		f.Chroms[i].Name = string(name)
		if err := binary.Read(bgz, binary.LittleEndian, &f.Chroms[i].Length); err != nil {
			return nil, err
		}
	}
	for ch := 0; ch < nChannels; ch++ {
		f.Data[ch] = make([][]fragmap.Segment, n)
		for i := range f.Data[ch] {
			var nSegs uint32
			if err := binary.Read(bgz, binary.LittleEndian, &nSegs); err != nil {
				return nil, err
			}
			segs := make([]fragmap.Segment, nSegs)
			if err := binary.Read(bgz, binary.LittleEndian, segs); err != nil {
				return nil, err
			}
			f.Data[ch][i] = segs
		}
	}
	return f, nil
}
