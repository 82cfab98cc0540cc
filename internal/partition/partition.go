// Package partition splits a byte space of known size into contiguous,
// fairly sized half-open ranges, one per worker.
//
// The split for worker id out of n workers over total bytes is
//
//	start = floor(id * total / n)
//	end   = floor((id+1) * total / n)
//
// so neighbouring boundaries are shared, the ranges cover [0, total) with no
// gaps or overlaps, and any two ranges differ in size by at most one byte.
// The same function is evaluated independently by the coordinator and by
// every worker; given the same (total, n) they always agree.
package partition

import (
	"fmt"
	"math/bits"
)

// Range is a half-open interval [Start, End) of byte offsets.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return r.End - r.Start }

// Empty reports whether the range holds no bytes.
func (r Range) Empty() bool { return r.End <= r.Start }

// Contains reports whether off lies inside [Start, End).
func (r Range) Contains(off int64) bool { return off >= r.Start && off < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// RangeFor returns the range owned by worker id when total bytes are split
// across workers. It panics if workers < 1, id is outside [0, workers) or
// total is negative; those are caller bugs, not runtime conditions.
func RangeFor(id int, total int64, workers int) Range {
	if workers < 1 {
		panic(fmt.Sprintf("partition: workers must be >= 1, got %d", workers))
	}
	if id < 0 || id >= workers {
		panic(fmt.Sprintf("partition: id %d outside [0,%d)", id, workers))
	}
	if total < 0 {
		panic(fmt.Sprintf("partition: negative total %d", total))
	}
	return Range{
		Start: boundary(id, total, workers),
		End:   boundary(id+1, total, workers),
	}
}

// All returns the ranges of every worker in id order.
func All(total int64, workers int) []Range {
	out := make([]Range, workers)
	for id := range out {
		out[id] = RangeFor(id, total, workers)
	}
	return out
}

// boundary computes floor(id*total/workers) with a 128-bit intermediate so
// the product cannot overflow. id <= workers keeps the high word below the
// divisor, which bits.Div64 requires.
func boundary(id int, total int64, workers int) int64 {
	hi, lo := bits.Mul64(uint64(id), uint64(total))
	q, _ := bits.Div64(hi, lo, uint64(workers))
	return int64(q)
}
