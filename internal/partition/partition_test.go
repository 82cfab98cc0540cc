package partition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRangeForCoverage checks that the ranges of all workers tile [0, total)
// exactly and that no two ranges differ in size by more than one byte.
func TestRangeForCoverage(t *testing.T) {
	totals := []int64{0, 1, 2, 3, 7, 9, 10, 64, 1000, 1 << 20}
	workers := []int{1, 2, 3, 5, 8, 9, 16, 100}

	for _, total := range totals {
		for _, n := range workers {
			ranges := All(total, n)
			require.Len(t, ranges, n)

			var next int64
			minLen, maxLen := int64(math.MaxInt64), int64(-1)
			for id, r := range ranges {
				assert.Equalf(t, next, r.Start, "total=%d n=%d id=%d: gap or overlap", total, n, id)
				assert.LessOrEqualf(t, r.Start, r.End, "total=%d n=%d id=%d: inverted range", total, n, id)
				next = r.End
				minLen = min(minLen, r.Len())
				maxLen = max(maxLen, r.Len())
			}
			assert.Equalf(t, total, next, "total=%d n=%d: ranges do not reach total", total, n)
			assert.LessOrEqualf(t, maxLen-minLen, int64(1), "total=%d n=%d: unbalanced split", total, n)
		}
	}
}

func TestRangeForSingleWorker(t *testing.T) {
	assert.Equal(t, Range{Start: 0, End: 12345}, RangeFor(0, 12345, 1))
}

func TestRangeForEmptyTotal(t *testing.T) {
	for id := 0; id < 4; id++ {
		r := RangeFor(id, 0, 4)
		assert.True(t, r.Empty(), "range %d should be empty, got %v", id, r)
	}
}

func TestRangeForKnownSplit(t *testing.T) {
	// 10 bytes over 3 workers: 3, 3, 4
	assert.Equal(t, []Range{{0, 3}, {3, 6}, {6, 10}}, All(10, 3))
	// More workers than bytes leaves some ranges empty.
	assert.Equal(t, []Range{{0, 0}, {0, 1}, {1, 1}, {1, 2}}, All(2, 4))
}

func TestRangeForLargeTotal(t *testing.T) {
	// id*total overflows int64 here; the split must still be exact.
	total := int64(math.MaxInt64 - 1)
	n := 7
	ranges := All(total, n)
	assert.Equal(t, int64(0), ranges[0].Start)
	assert.Equal(t, total, ranges[n-1].End)
	for id := 1; id < n; id++ {
		assert.Equal(t, ranges[id-1].End, ranges[id].Start)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 4, End: 8}
	assert.False(t, r.Contains(3))
	assert.True(t, r.Contains(4))
	assert.True(t, r.Contains(7))
	assert.False(t, r.Contains(8))
	assert.Equal(t, "[4,8)", r.String())
}

func TestRangeForPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { RangeFor(0, 10, 0) })
	assert.Panics(t, func() { RangeFor(3, 10, 3) })
	assert.Panics(t, func() { RangeFor(-1, 10, 3) })
	assert.Panics(t, func() { RangeFor(0, -1, 3) })
}
