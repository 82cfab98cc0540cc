package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/dreamware/scanmesh/internal/cluster"
)

// Group is the set of in-process workers serving the remote ranks of a
// LocalTransport.
type Group struct {
	reports []Report
	errs    []error
	wg      sync.WaitGroup
}

// StartLocal launches one goroutine per remote rank of t. A worker that
// fails for any reason other than an abort fails the transport, which in
// turn fails the coordinator's pending receive.
func StartLocal(ctx context.Context, t *cluster.LocalTransport, stats *Stats) *Group {
	n := t.Size() - 1
	g := &Group{
		reports: make([]Report, n),
		errs:    make([]error, n),
	}
	for rank := 1; rank <= n; rank++ {
		g.wg.Add(1)
		go func(rank int) {
			defer g.wg.Done()
			rep, err := Serve(ctx, t.Endpoint(rank), stats)
			if err != nil && !errors.Is(err, cluster.ErrAborted) {
				t.Fail(err)
			}
			g.reports[rank-1] = rep
			g.errs[rank-1] = err
		}(rank)
	}
	return g
}

// Wait blocks until every worker has returned. Reports are in rank order;
// the error is the lowest-ranked failure other than an abort, or ErrAborted
// if the job was aborted and nothing else failed.
func (g *Group) Wait() ([]Report, error) {
	g.wg.Wait()
	var aborted error
	for _, err := range g.errs {
		switch {
		case err == nil:
		case errors.Is(err, cluster.ErrAborted):
			if aborted == nil {
				aborted = err
			}
		default:
			return g.reports, err
		}
	}
	return g.reports, aborted
}
