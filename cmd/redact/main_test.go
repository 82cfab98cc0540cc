package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("abcabc"), 0o644))

	var stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"2", "abc", in, out}, &stderr), stderr.String())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "000111", string(got))
}

func TestRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, nil, 0o644))

	var stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"3", "x", in, out}, &stderr))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("data"), 0o644))

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"too few arguments", []string{"2", "a", in}, 2, "Usage: redact"},
		{"non-numeric threads", []string{"two", "a", in, filepath.Join(dir, "o")}, 2, "invalid number of threads"},
		{"negative threads", []string{"-1", "a", in, filepath.Join(dir, "o")}, 2, "invalid number of threads"},
		{"zero threads", []string{"0", "a", in, filepath.Join(dir, "o")}, 2, "invalid number of threads"},
		{"missing input", []string{"2", "a", filepath.Join(dir, "nope"), filepath.Join(dir, "o")}, 1, "nope"},
		{"unwritable output", []string{"2", "a", in, filepath.Join(dir, "missing", "o")}, 1, "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.wantCode, run(tt.args, &stderr))
			assert.Contains(t, stderr.String(), tt.wantMsg)
		})
	}
}

func TestParseWorkers(t *testing.T) {
	n, err := parseWorkers("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseWorkers("+3")
	assert.ErrorIs(t, err, errUsage)
}
