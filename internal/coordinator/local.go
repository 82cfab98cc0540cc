package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/worker"
)

// RunLocal runs one search with workers ranks inside this process: rank 0
// is the coordinator and ranks 1..workers-1 are goroutines connected by a
// LocalTransport. It returns once every worker has exited.
func RunLocal(ctx context.Context, workers int, argv []string, out io.Writer, logger *log.Logger) error {
	if workers < 1 {
		return &RunError{State: StateInit, Err: fmt.Errorf("%w: worker count %d < 1", ErrValidation, workers)}
	}
	t := cluster.NewLocalTransport(workers)
	group := worker.StartLocal(ctx, t, nil)

	err := New(t, logger).Run(ctx, argv, out)
	if err != nil {
		// Workers still waiting for metadata never heard of the job.
		_ = t.Abort(ctx, "")
	}
	if _, werr := group.Wait(); werr != nil && err == nil && !errors.Is(werr, cluster.ErrAborted) {
		return werr
	}
	return err
}
