package coordinator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   [][]int64
		want []int64
	}{
		{"no ranks", nil, []int64{}},
		{"all empty", [][]int64{nil, {}, nil}, []int64{}},
		{"rank order kept", [][]int64{{0, 2}, nil, {5}, {7, 9}}, []int64{0, 2, 5, 7, 9}},
		{"single rank", [][]int64{{3}}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, []int64{0, 17, 9223372036854775806}))
	assert.Equal(t, "0\n17\n9223372036854775806\n", buf.String())

	buf.Reset()
	require.NoError(t, Emit(&buf, []int64{}))
	assert.Empty(t, buf.String())
}

func TestEmitWriteError(t *testing.T) {
	assert.EqualError(t, Emit(failingWriter{}, []int64{1}), "disk full")
}
