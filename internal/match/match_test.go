package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterPattern(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "printable kept", raw: "abc XYZ~!", want: "abc XYZ~!"},
		{name: "control bytes dropped", raw: "a\tb\nc\x00", want: "abc"},
		{name: "high bytes dropped", raw: "caf\xc3\xa9", want: "caf"},
		{name: "all dropped", raw: "\x01\x02\x7f", want: ""},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterPattern([]byte(tt.raw))
			assert.Equal(t, tt.want, string(got))
			assert.NotNil(t, got)
		})
	}
}

func TestFindAll(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		pattern string
		start   int64
		limit   int64
		want    []int64
	}{
		{name: "repeated", data: "abcabcabc", pattern: "bca", start: 0, limit: 9, want: []int64{1, 4}},
		{name: "overlapping", data: "aaaa", pattern: "aa", start: 0, limit: 4, want: []int64{0, 1, 2}},
		{name: "global offsets", data: "xxab", pattern: "ab", start: 100, limit: 104, want: []int64{102}},
		{name: "match at last start", data: "xyzab", pattern: "ab", start: 0, limit: 5, want: []int64{3}},
		{name: "truncated partial", data: "xyza", pattern: "ab", start: 0, limit: 4, want: nil},
		{name: "no match", data: "hello", pattern: "z", start: 0, limit: 5, want: nil},
		{name: "pattern longer than data", data: "ab", pattern: "abc", start: 0, limit: 2, want: nil},
		{name: "empty data", data: "", pattern: "a", start: 0, limit: 0, want: nil},
		// Range [10,12) plus one overlap byte: the match at 12 starts in
		// the overlap and belongs to the next worker.
		{name: "overlap start discarded", data: "xaaa", pattern: "aa", start: 10, limit: 12, want: []int64{11}},
		{name: "overlap completes match", data: "xa" + "b", pattern: "ab", start: 0, limit: 2, want: []int64{1}},
		{name: "empty pattern", data: "abc", pattern: "", start: 5, limit: 8, want: []int64{5, 6, 7}},
		{name: "empty pattern limited", data: "abcd", pattern: "", start: 0, limit: 2, want: []int64{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAll([]byte(tt.data), []byte(tt.pattern), tt.start, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNaive(t *testing.T) {
	text := []byte(strings.Repeat("ab", 50))
	got := Naive(text, []byte("ba"))
	assert.Len(t, got, 49)
	for i, off := range got {
		assert.Equal(t, int64(2*i+1), off)
	}
}
