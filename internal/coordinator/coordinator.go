package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/scanmesh/internal/chunk"
	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/match"
	"github.com/dreamware/scanmesh/internal/partition"
)

// Args are the validated command-line arguments of a search.
type Args struct {
	Path    string
	Pattern []byte
	// Dropped counts the non-printable bytes removed from the raw pattern.
	Dropped int
}

// ParseArgs validates argv (program name excluded). The pattern is
// filtered to printable ASCII before use.
func ParseArgs(argv []string) (Args, error) {
	if len(argv) != 2 {
		return Args{}, fmt.Errorf("%w: expected <pattern> <file_name>, got %d arguments", ErrUsage, len(argv))
	}
	if argv[1] == "" {
		return Args{}, fmt.Errorf("%w: empty file name", ErrValidation)
	}
	raw := []byte(argv[0])
	pattern := match.FilterPattern(raw)
	return Args{
		Pattern: pattern,
		Path:    argv[1],
		Dropped: len(raw) - len(pattern),
	}, nil
}

// Coordinator drives search jobs over a Transport. It plays rank 0: it
// partitions the source, ships every other rank its chunk, matches its own
// chunk locally and merges the results in rank order.
//
// A Coordinator runs one job at a time; concurrent calls to Run or Search
// are serialized.
//
// Example:
//
//	t := cluster.NewLocalTransport(4)
//	workers := worker.StartLocal(ctx, t, nil)
//	c := coordinator.New(t, nil)
//	err := c.Run(ctx, []string{"needle", "haystack.txt"}, os.Stdout)
type Coordinator struct {
	transport cluster.Transport
	logger    *log.Logger
	newJobID  func() string
	table     *Assignments
	run       sync.Mutex // held for the duration of a job
	mu        sync.RWMutex
	state     State
}

// New creates a coordinator over t. A nil logger uses log.Default().
func New(t cluster.Transport, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		transport: t,
		logger:    logger,
		newJobID:  uuid.NewString,
	}
}

// State returns the step the coordinator is in, or the last one it reached.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Assignments returns the rank table of the current or most recent job,
// or nil before the first job.
func (c *Coordinator) Assignments() *Assignments {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

func (c *Coordinator) enter(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail records err against the current state, aborts jobID on every
// remote rank and returns the wrapped error.
func (c *Coordinator) fail(ctx context.Context, jobID string, err error) error {
	c.mu.Lock()
	failed := c.state
	c.state = StateFail
	c.mu.Unlock()

	if jobID != "" {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if aerr := c.transport.Abort(actx, jobID); aerr != nil {
			c.logger.Printf("coordinator job %s: abort: %v", jobID, aerr)
		}
		cancel()
	}
	return &RunError{State: failed, Err: err}
}

// Run executes one search end to end: validate argv, open the file,
// search it and write one offset per line to out.
//
// Returns:
//   - nil once every offset has been written
//   - *RunError wrapping one of the package's error kinds otherwise
func (c *Coordinator) Run(ctx context.Context, argv []string, out io.Writer) error {
	c.run.Lock()
	defer c.run.Unlock()

	c.enter(StateInit)
	c.enter(StateValidateArgs)
	args, err := ParseArgs(argv)
	if err != nil {
		return c.fail(ctx, "", err)
	}
	if args.Dropped > 0 {
		c.logger.Printf("coordinator: dropped %d non-printable pattern bytes", args.Dropped)
	}

	c.enter(StateOpenFile)
	f, err := chunk.OpenFile(args.Path)
	if err != nil {
		return c.fail(ctx, "", fmt.Errorf("%w: %w", ErrIO, err))
	}
	defer f.Close()

	offsets, err := c.search(ctx, args.Pattern, f)
	if err != nil {
		return err
	}

	c.enter(StateEmit)
	if err := Emit(out, offsets); err != nil {
		return c.fail(ctx, "", fmt.Errorf("%w: %w", ErrIO, err))
	}
	c.enter(StateTerminate)
	return nil
}

// Search finds every occurrence of pattern in src using all ranks of the
// transport. The offsets are ascending; an empty result is a non-nil empty
// slice.
func (c *Coordinator) Search(ctx context.Context, pattern []byte, src chunk.Source) ([]int64, error) {
	c.run.Lock()
	defer c.run.Unlock()

	c.enter(StateInit)
	offsets, err := c.search(ctx, pattern, src)
	if err != nil {
		return nil, err
	}
	c.enter(StateTerminate)
	return offsets, nil
}

func (c *Coordinator) search(ctx context.Context, pattern []byte, src chunk.Source) ([]int64, error) {
	began := time.Now()
	workers := c.transport.Size()
	meta := cluster.Metadata{
		JobID:      c.newJobID(),
		Pattern:    bytes.Clone(pattern),
		PatternLen: len(pattern),
		FileSize:   src.Size(),
		Workers:    workers,
	}
	if meta.Pattern == nil {
		meta.Pattern = []byte{}
	}
	jobID := meta.JobID
	ranges := partition.All(meta.FileSize, workers)

	table := NewAssignments(jobID, ranges)
	for rank := range ranges {
		node := "coordinator"
		if rank > 0 {
			node = c.transport.Peer(rank).ID
		}
		if err := table.Assign(rank, node); err != nil {
			return nil, c.fail(ctx, "", err)
		}
	}
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()

	c.enter(StateBroadcastMetadata)
	if err := c.transport.Broadcast(ctx, meta); err != nil {
		return nil, c.fail(ctx, jobID, transportErr(err))
	}

	c.enter(StateDistributeChunks)
	own, err := chunk.Load(ranges[0], meta.PatternLen, src)
	if err != nil {
		return nil, c.fail(ctx, jobID, loadErr(err))
	}
	for rank := 1; rank < workers; rank++ {
		ch, err := chunk.Load(ranges[rank], meta.PatternLen, src)
		if err != nil {
			return nil, c.fail(ctx, jobID, loadErr(err))
		}
		msg := cluster.ChunkMessage{
			JobID:    jobID,
			Rank:     rank,
			Start:    ranges[rank].Start,
			Data:     ch.Data,
			Checksum: cluster.Checksum(ch.Data),
		}
		if err := c.transport.Send(ctx, msg); err != nil {
			return nil, c.fail(ctx, jobID, transportErr(err))
		}
		if err := table.MarkShipped(rank, len(ch.Data)); err != nil {
			return nil, c.fail(ctx, jobID, err)
		}
	}

	results := make([][]int64, workers)
	results[0] = match.FindAll(own.Data, meta.Pattern, own.Start, own.End)
	if err := table.MarkShipped(0, len(own.Data)); err != nil {
		return nil, c.fail(ctx, jobID, err)
	}
	if err := table.MarkReported(0, len(results[0])); err != nil {
		return nil, c.fail(ctx, jobID, err)
	}

	c.enter(StateAwaitResults)
	for rank := 1; rank < workers; rank++ {
		res, err := c.transport.Recv(ctx, rank, jobID)
		if err != nil {
			return nil, c.fail(ctx, jobID, transportErr(err))
		}
		if err := checkResult(res, jobID, rank, ranges[rank]); err != nil {
			return nil, c.fail(ctx, jobID, err)
		}
		results[rank] = res.Offsets
		if err := table.MarkReported(rank, res.Count); err != nil {
			return nil, c.fail(ctx, jobID, err)
		}
	}

	c.enter(StateAggregate)
	merged := Merge(results)
	bytesRead, _ := table.Totals()
	c.logger.Printf("coordinator job %s: %d matches across %d ranks, %d bytes scanned in %v",
		jobID, len(merged), workers, bytesRead, time.Since(began))
	return merged, nil
}

// checkResult rejects a result that does not belong to rank's part of the
// job.
func checkResult(res cluster.ResultMessage, jobID string, rank int, r partition.Range) error {
	switch {
	case res.JobID != jobID:
		return fmt.Errorf("%w: rank %d answered for job %q", ErrProtocol, rank, res.JobID)
	case res.Rank != rank:
		return fmt.Errorf("%w: result for rank %d arrived as rank %d", ErrProtocol, res.Rank, rank)
	case res.Count != len(res.Offsets):
		return fmt.Errorf("%w: rank %d reported %d matches but sent %d offsets", ErrProtocol, rank, res.Count, len(res.Offsets))
	case !strictlyAscending(res.Offsets):
		return fmt.Errorf("%w: rank %d offsets are not ascending", ErrProtocol, rank)
	}
	if i := slices.IndexFunc(res.Offsets, func(off int64) bool { return !r.Contains(off) }); i >= 0 {
		return fmt.Errorf("%w: rank %d reported offset %d outside %v", ErrProtocol, rank, res.Offsets[i], r)
	}
	return nil
}

func strictlyAscending(offs []int64) bool {
	for i := 1; i < len(offs); i++ {
		if offs[i] <= offs[i-1] {
			return false
		}
	}
	return true
}

func transportErr(err error) error {
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func loadErr(err error) error {
	if errors.Is(err, chunk.ErrTooLarge) {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
