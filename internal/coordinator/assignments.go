// This file implements the rank table of a search job: which node serves
// each rank, the byte range it owns and how far its part of the job has
// progressed.

package coordinator

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/scanmesh/internal/partition"
)

// RankState is the progress of one rank within a job.
type RankState string

const (
	// RankPending: assigned, chunk not yet delivered.
	RankPending RankState = "pending"
	// RankShipped: chunk delivered, result outstanding.
	RankShipped RankState = "shipped"
	// RankReported: result received and accepted.
	RankReported RankState = "reported"
)

// RankAssignment describes one rank of a job.
type RankAssignment struct {
	// NodeID identifies the node serving the rank. Rank 0 is always
	// served by the coordinator itself.
	NodeID string `json:"node_id"`

	// State advances pending -> shipped -> reported and never goes back.
	State RankState `json:"state"`

	// Range is the slice of the source the rank owns. Only matches that
	// start inside it are reported by the rank.
	Range partition.Range `json:"range"`

	Rank int `json:"rank"`

	// Bytes is the size of the chunk shipped to the rank, overlap included.
	Bytes int `json:"bytes"`

	// Matches is the number of offsets the rank reported.
	Matches int `json:"matches"`
}

// Assignments is the rank table of one job.
//
// Results are accepted strictly in rank order: a rank can only be marked
// reported once every lower rank has been. This mirrors the coordinator's
// receive loop and is what makes the merged output ascending.
//
// Thread Safety:
// All methods are safe for concurrent use.
type Assignments struct {
	jobID string
	ranks []RankAssignment
	mu    sync.RWMutex
}

// NewAssignments creates a table with one pending rank per range.
func NewAssignments(jobID string, ranges []partition.Range) *Assignments {
	a := &Assignments{
		jobID: jobID,
		ranks: make([]RankAssignment, len(ranges)),
	}
	for i, r := range ranges {
		a.ranks[i] = RankAssignment{Rank: i, Range: r, State: RankPending}
	}
	return a
}

// JobID returns the job the table belongs to.
func (a *Assignments) JobID() string { return a.jobID }

// Len returns the number of ranks.
func (a *Assignments) Len() int { return len(a.ranks) }

func (a *Assignments) at(rank int) (*RankAssignment, error) {
	if rank < 0 || rank >= len(a.ranks) {
		return nil, fmt.Errorf("%w: rank %d out of range [0, %d)", ErrProtocol, rank, len(a.ranks))
	}
	return &a.ranks[rank], nil
}

// Assign records the node serving a pending rank.
func (a *Assignments) Assign(rank int, nodeID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ra, err := a.at(rank)
	if err != nil {
		return err
	}
	if ra.State != RankPending {
		return fmt.Errorf("%w: rank %d reassigned while %s", ErrProtocol, rank, ra.State)
	}
	ra.NodeID = nodeID
	return nil
}

// MarkShipped records that a pending rank received its chunk of n bytes.
func (a *Assignments) MarkShipped(rank, n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ra, err := a.at(rank)
	if err != nil {
		return err
	}
	if ra.State != RankPending {
		return fmt.Errorf("%w: rank %d shipped twice", ErrProtocol, rank)
	}
	ra.State = RankShipped
	ra.Bytes = n
	return nil
}

// MarkReported records a shipped rank's match count. Every lower rank
// must already be reported.
func (a *Assignments) MarkReported(rank, matches int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ra, err := a.at(rank)
	if err != nil {
		return err
	}
	if ra.State != RankShipped {
		return fmt.Errorf("%w: rank %d reported while %s", ErrProtocol, rank, ra.State)
	}
	if i := slices.IndexFunc(a.ranks[:rank], func(r RankAssignment) bool {
		return r.State != RankReported
	}); i >= 0 {
		return fmt.Errorf("%w: rank %d reported before rank %d", ErrProtocol, rank, i)
	}
	ra.State = RankReported
	ra.Matches = matches
	return nil
}

// Get returns a copy of rank's assignment, or nil if there is no such rank.
func (a *Assignments) Get(rank int) *RankAssignment {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ra, err := a.at(rank)
	if err != nil {
		return nil
	}
	cp := *ra
	return &cp
}

// All returns a copy of every assignment in rank order.
func (a *Assignments) All() []RankAssignment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.ranks)
}

// NodeRanks returns the ranks served by nodeID, ascending.
func (a *Assignments) NodeRanks(nodeID string) []int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var ranks []int
	for _, ra := range a.ranks {
		if ra.NodeID == nodeID {
			ranks = append(ranks, ra.Rank)
		}
	}
	return ranks
}

// Outstanding returns the ranks whose results have not been accepted.
func (a *Assignments) Outstanding() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var ranks []int
	for _, ra := range a.ranks {
		if ra.State != RankReported {
			ranks = append(ranks, ra.Rank)
		}
	}
	return ranks
}

// Totals sums shipped bytes and reported matches over all ranks.
func (a *Assignments) Totals() (bytes, matches int) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, ra := range a.ranks {
		bytes += ra.Bytes
		matches += ra.Matches
	}
	return bytes, matches
}
