// Package chunk materializes a worker's share of the source file: the bytes
// of its range followed by a short overlap tail borrowed from the next
// range, long enough to complete any match that starts inside the range.
package chunk

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dreamware/scanmesh/internal/partition"
)

var (
	// ErrRead is returned when the source cannot deliver the requested bytes.
	ErrRead = errors.New("chunk read failed")
	// ErrTooLarge is returned when a chunk cannot be held in one buffer.
	ErrTooLarge = errors.New("chunk too large")
	// ErrRange is returned for a range that does not fit inside the source.
	ErrRange = errors.New("range outside source")
)

// Source is a read-only, fixed-size byte source. *bytes.Reader and *File
// both satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Chunk is the buffer shipped to one worker. Data begins at file offset
// Start; bytes of Data at or beyond End are overlap and only complete
// matches that start before End.
type Chunk struct {
	Data  []byte
	Start int64
	End   int64
}

// Range returns the owned range of the chunk.
func (c Chunk) Range() partition.Range { return partition.Range{Start: c.Start, End: c.End} }

// Overlap returns the number of trailing bytes borrowed from beyond End.
func (c Chunk) Overlap() int {
	if n := int64(len(c.Data)) - c.Range().Len(); n > 0 {
		return int(n)
	}
	return 0
}

// Load reads r plus up to patternLen-1 overlap bytes from src. The overlap
// is truncated at the end of the source; nothing past Size is ever read.
//
// When the range is empty, or when no match can start inside it because
// fewer than patternLen bytes remain from r.Start to the end of the source,
// the returned chunk carries no data.
func Load(r partition.Range, patternLen int, src Source) (Chunk, error) {
	size := src.Size()
	if r.Start < 0 || r.Start > r.End || r.End > size {
		return Chunk{}, fmt.Errorf("%w: %v in source of %d bytes", ErrRange, r, size)
	}
	c := Chunk{Start: r.Start, End: r.End}
	if r.Empty() || r.Start+int64(patternLen) > size {
		return c, nil
	}

	overlap := int64(max(patternLen-1, 0))
	stop := min(r.End+overlap, size)
	n := stop - r.Start
	if n > math.MaxInt {
		return Chunk{}, fmt.Errorf("%w: %d bytes at offset %d", ErrTooLarge, n, r.Start)
	}

	buf := make([]byte, n)
	read, err := src.ReadAt(buf, r.Start)
	if read == len(buf) {
		// io.ReaderAt may report io.EOF alongside a full read at the tail.
		err = nil
	}
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: %d bytes at offset %d: %w", ErrRead, n, r.Start, err)
	}
	c.Data = buf
	return c, nil
}
