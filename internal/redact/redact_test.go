package redact

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		pattern string
		workers int
		want    string
	}{
		{"single worker", "abcabc", "abc", 1, "000000"},
		{"no match", "hello world", "xyz", 3, "hello world"},
		{"one per worker", "abcabc", "abc", 2, "000111"},
		{"higher id wins overlap", "aaaa", "aa", 2, "0011"},
		{"match across boundary", "xxxxxABCDyyy", "ABCD", 2, "xxxxx0000yyy"},
		{"more workers than bytes", "ab", "b", 5, "a4"},
		{"empty text", "", "a", 3, ""},
		{"empty pattern", "abc", "", 2, "abc"},
		{"pattern longer than text", "ab", "abc", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Redact([]byte(tt.text), []byte(tt.pattern), tt.workers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRedactLeavesInputAlone(t *testing.T) {
	text := []byte("secret secret")
	_, err := Redact(text, []byte("secret"), 4)
	require.NoError(t, err)
	assert.Equal(t, "secret secret", string(text))
}

func TestRedactCoversSameBytesForAnyWorkerCount(t *testing.T) {
	text := []byte(strings.Repeat("abaab", 20))
	pattern := []byte("aba")
	redacted := func(out []byte) []int {
		var idx []int
		for i := range out {
			if out[i] != text[i] {
				idx = append(idx, i)
			}
		}
		return idx
	}

	base, err := Redact(text, pattern, 1)
	require.NoError(t, err)
	want := redacted(base)
	require.NotEmpty(t, want)

	for _, workers := range []int{2, 3, 7, len(text)} {
		got, err := Redact(text, pattern, workers)
		require.NoError(t, err)
		// Markers may coincide with text bytes only for ids whose marker is
		// 'a' or 'b', which never happens below 10 workers.
		if workers < 10 {
			assert.Equal(t, want, redacted(got), "P=%d", workers)
		}
		assert.Equal(t, len(text), len(got))
	}
}

func TestRedactIsDeterministic(t *testing.T) {
	text := bytes.Repeat([]byte("aaaaaaa"), 30)
	first, err := Redact(text, []byte("aaa"), 8)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Redact(text, []byte("aaa"), 8)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestRedactRejectsWorkers(t *testing.T) {
	for _, workers := range []int{0, -1} {
		_, err := Redact([]byte("abc"), []byte("a"), workers)
		assert.ErrorIs(t, err, ErrWorkers, fmt.Sprint(workers))
	}
}

func TestMarker(t *testing.T) {
	assert.Equal(t, byte('0'), Marker(0))
	assert.Equal(t, byte('a'), Marker(10))
	assert.Equal(t, byte(' '), Marker(63))
	assert.Equal(t, byte('0'), Marker(64))
}
