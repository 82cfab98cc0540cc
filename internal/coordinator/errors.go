package coordinator

import (
	"errors"
	"fmt"

	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/worker"
)

// Error kinds. Every error returned by Run or Search wraps exactly one of
// them, and all of them are fatal to the run.
var (
	// ErrUsage: wrong number of command-line arguments.
	ErrUsage = errors.New("usage error")
	// ErrValidation: arguments are present but unusable.
	ErrValidation = errors.New("validation error")
	// ErrIO: the source cannot be opened or read, or output cannot be written.
	ErrIO = errors.New("i/o error")
	// ErrTransport: a message could not be sent or received.
	ErrTransport = cluster.ErrTransport
	// ErrAllocation: a chunk or result buffer cannot be allocated.
	ErrAllocation = errors.New("allocation error")
	// ErrProtocol: a worker answered with a result that contradicts the job.
	ErrProtocol = worker.ErrProtocol
)

// State is a step of the coordinator's run.
type State int

const (
	StateInit State = iota
	StateValidateArgs
	StateOpenFile
	StateBroadcastMetadata
	StateDistributeChunks
	StateAwaitResults
	StateAggregate
	StateEmit
	StateTerminate
	StateFail
)

var stateNames = [...]string{
	StateInit:              "Init",
	StateValidateArgs:      "ValidateArgs",
	StateOpenFile:          "OpenFile",
	StateBroadcastMetadata: "BroadcastMetadata",
	StateDistributeChunks:  "DistributeChunks",
	StateAwaitResults:      "AwaitResults",
	StateAggregate:         "Aggregate",
	StateEmit:              "Emit",
	StateTerminate:         "Terminate",
	StateFail:              "Fail",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RunError records the state in which a run failed.
type RunError struct {
	Err   error
	State State
}

func (e *RunError) Error() string { return fmt.Sprintf("%s: %v", e.State, e.Err) }

func (e *RunError) Unwrap() error { return e.Err }
