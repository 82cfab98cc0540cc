// Package match implements the brute-force substring scan used by every
// search worker, plus the pattern filtering applied when a pattern is first
// read from the command line.
package match

import "bytes"

// FilterPattern returns the printable ASCII subset (0x20 through 0x7E) of
// raw, preserving order. Other bytes are dropped rather than rejected, so
// the result may be shorter than raw or empty.
func FilterPattern(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b >= 0x20 && b <= 0x7e {
			out = append(out, b)
		}
	}
	return out
}

// FindAll scans data for pattern and returns globalStart+i for every index i
// at which a full copy of pattern begins, in ascending order.
//
// Only starts whose global offset is below limit are reported: bytes of data
// past limit are overlap borrowed from the next range and serve only to
// complete matches that begin before it. A match cut off by the end of data
// is not a match. An empty pattern matches at every reported position.
func FindAll(data, pattern []byte, globalStart, limit int64) []int64 {
	var out []int64
	for i := range data {
		off := globalStart + int64(i)
		if off >= limit {
			break
		}
		if i+len(pattern) > len(data) {
			break
		}
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			out = append(out, off)
		}
	}
	return out
}

// Naive scans the whole of text in one pass. It is the reference result
// the distributed search must reproduce.
func Naive(text, pattern []byte) []int64 {
	return FindAll(text, pattern, 0, int64(len(text)))
}
