// Package redact overwrites every occurrence of a pattern in a text using a
// fixed group of goroutines over one shared buffer.
//
// Worker id owns partition.RangeFor(id, len(text), P) and redacts the
// matches that start inside it with Marker(id). Where matches of different
// workers overlap, the higher id wins, so the output does not depend on
// scheduling.
package redact

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/dreamware/scanmesh/internal/chunk"
	"github.com/dreamware/scanmesh/internal/match"
	"github.com/dreamware/scanmesh/internal/partition"
)

const markers = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_ "

// ErrWorkers is returned for a worker count below one.
var ErrWorkers = errors.New("redact: worker count must be at least 1")

// Marker returns the byte worker id writes over its matches.
func Marker(id int) byte { return markers[id%len(markers)] }

// Redact returns a copy of text with every occurrence of pattern
// overwritten. text itself is not modified.
func Redact(text, pattern []byte, workers int) ([]byte, error) {
	if workers < 1 {
		return nil, ErrWorkers
	}
	out := bytes.Clone(text)
	if out == nil {
		out = []byte{}
	}
	owner := make([]int, len(out))
	for i := range owner {
		owner[i] = -1
	}

	var (
		mu      sync.Mutex
		copied  sync.WaitGroup
		done    sync.WaitGroup
		release = make(chan struct{})
		errs    = make([]error, workers)
	)
	src := bytes.NewReader(out)
	total := int64(len(out))

	copied.Add(workers)
	done.Add(workers)
	for id := 0; id < workers; id++ {
		go func(id int) {
			defer done.Done()

			// Every worker copies its chunk before anyone writes.
			c, err := chunk.Load(partition.RangeFor(id, total, workers), len(pattern), src)
			copied.Done()
			<-release
			if err != nil {
				errs[id] = fmt.Errorf("worker %d: %w", id, err)
				return
			}

			starts := match.FindAll(c.Data, pattern, c.Start, c.End)
			if len(starts) == 0 || len(pattern) == 0 {
				return
			}
			mark := Marker(id)
			mu.Lock()
			defer mu.Unlock()
			for _, s := range starts {
				for k := s; k < s+int64(len(pattern)); k++ {
					if owner[k] < id {
						out[k] = mark
						owner[k] = id
					}
				}
			}
		}(id)
	}
	copied.Wait()
	close(release)
	done.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
