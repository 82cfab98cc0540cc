// Package main implements the redact command, which copies a file with
// every occurrence of a pattern overwritten by per-worker marker
// characters.
//
// Example usage:
//
//	./redact 4 password notes.txt notes.redacted.txt
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/dreamware/scanmesh/internal/chunk"
	"github.com/dreamware/scanmesh/internal/redact"
)

const usage = "Usage: redact <number of threads> <pattern> <input file> <output file>"

var errUsage = errors.New(usage)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	logger := log.New(stderr, "", 0)
	if err := redactFile(args); err != nil {
		logger.Printf("redact: %v", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func redactFile(args []string) error {
	if len(args) != 4 {
		return errUsage
	}
	workers, err := parseWorkers(args[0])
	if err != nil {
		return err
	}
	pattern, in, out := []byte(args[1]), args[2], args[3]

	f, err := chunk.OpenFile(in)
	if err != nil {
		return err
	}
	defer f.Close()

	text := make([]byte, f.Size())
	if _, err := f.ReadAt(text, 0); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", in, err)
	}

	redacted, err := redact.Redact(text, pattern, workers)
	if err != nil {
		return err
	}
	return os.WriteFile(out, redacted, 0o644)
}

// parseWorkers accepts decimal digits only, so signs and spaces are
// rejected.
func parseWorkers(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: invalid number of threads %q", errUsage, s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid number of threads %q", errUsage, s)
	}
	return n, nil
}
