// Package worker implements the worker side of a search job: it receives
// the broadcast metadata, derives its own range, receives its chunk, runs
// the matcher over it and reports the offsets it owns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/match"
	"github.com/dreamware/scanmesh/internal/partition"
)

// ErrProtocol is returned when a message is well formed but contradicts the
// job it belongs to.
var ErrProtocol = errors.New("protocol violation")

// Stats accumulates counters across every job a process serves.
// All methods are safe for concurrent use.
type Stats struct {
	jobs     atomic.Uint64
	failures atomic.Uint64
	bytes    atomic.Uint64
	matches  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Jobs     uint64 `json:"jobs"`
	Failures uint64 `json:"failures"`
	Bytes    uint64 `json:"bytes_scanned"`
	Matches  uint64 `json:"matches"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Jobs:     s.jobs.Load(),
		Failures: s.failures.Load(),
		Bytes:    s.bytes.Load(),
		Matches:  s.matches.Load(),
	}
}

func (s *Stats) record(rep Report, err error) {
	if s == nil {
		return
	}
	s.jobs.Add(1)
	if err != nil {
		s.failures.Add(1)
		return
	}
	s.bytes.Add(uint64(rep.Bytes))
	s.matches.Add(uint64(rep.Matches))
}

// Report describes one finished worker run.
type Report struct {
	JobID   string
	Range   partition.Range
	Rank    int
	Bytes   int
	Matches int
	Elapsed time.Duration
}

// Serve runs one job over ep and records the outcome in stats, which may be
// nil. Metadata arrives as a value and is never shared with other ranks.
func Serve(ctx context.Context, ep cluster.Endpoint, stats *Stats) (Report, error) {
	start := time.Now()
	rep, err := serve(ctx, ep)
	rep.Elapsed = time.Since(start)
	stats.record(rep, err)
	return rep, err
}

func serve(ctx context.Context, ep cluster.Endpoint) (Report, error) {
	rank := ep.Rank()
	rep := Report{Rank: rank}

	meta, err := ep.RecvMetadata(ctx)
	if err != nil {
		return rep, fmt.Errorf("rank %d: receive metadata: %w", rank, err)
	}
	rep.JobID = meta.JobID
	if err := meta.Validate(); err != nil {
		return rep, fmt.Errorf("%w: rank %d: %w", ErrProtocol, rank, err)
	}
	if rank < 1 || rank >= meta.Workers {
		return rep, fmt.Errorf("%w: rank %d outside job of %d workers", ErrProtocol, rank, meta.Workers)
	}
	rep.Range = partition.RangeFor(rank, meta.FileSize, meta.Workers)

	c, err := ep.RecvChunk(ctx)
	if err != nil {
		return rep, fmt.Errorf("rank %d: receive chunk: %w", rank, err)
	}
	if err := checkChunk(c, meta, rank, rep.Range); err != nil {
		return rep, err
	}

	offsets := match.FindAll(c.Data, meta.Pattern, c.Start, rep.Range.End)
	rep.Bytes = len(c.Data)
	rep.Matches = len(offsets)

	res := cluster.ResultMessage{JobID: meta.JobID, Rank: rank, Count: len(offsets), Offsets: offsets}
	if err := ep.SendResult(ctx, res); err != nil {
		return rep, fmt.Errorf("rank %d: send result: %w", rank, err)
	}
	return rep, nil
}

func checkChunk(c cluster.ChunkMessage, meta cluster.Metadata, rank int, r partition.Range) error {
	if c.JobID != meta.JobID || c.Rank != rank {
		return fmt.Errorf("%w: rank %d of job %s got chunk for rank %d of job %s", ErrProtocol, rank, meta.JobID, c.Rank, c.JobID)
	}
	if c.Start != r.Start {
		return fmt.Errorf("%w: rank %d: chunk starts at %d, range is %v", ErrProtocol, rank, c.Start, r)
	}
	if limit := r.Len() + int64(max(meta.PatternLen-1, 0)); int64(len(c.Data)) > limit {
		return fmt.Errorf("%w: rank %d: chunk of %d bytes exceeds range %v plus overlap", ErrProtocol, rank, len(c.Data), r)
	}
	if !c.Verify() {
		return fmt.Errorf("%w: rank %d: chunk checksum mismatch", cluster.ErrTransport, rank)
	}
	return nil
}
