package coordinator

import (
	"bufio"
	"io"
	"strconv"
)

// Merge concatenates per-rank offset lists in rank order. Ranks own
// disjoint ascending ranges, so the result is ascending without a sort.
// It is never nil.
func Merge(perRank [][]int64) []int64 {
	n := 0
	for _, offs := range perRank {
		n += len(offs)
	}
	out := make([]int64, 0, n)
	for _, offs := range perRank {
		out = append(out, offs...)
	}
	return out
}

// Emit writes each offset in decimal on its own line. Nothing is written
// for an empty list.
func Emit(w io.Writer, offsets []int64) error {
	bw := bufio.NewWriter(w)
	var buf [21]byte
	for _, off := range offsets {
		line := strconv.AppendInt(buf[:0], off, 10)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
