package cluster

import (
	"context"
	"fmt"
	"sync"
)

// LocalTransport connects the coordinator to in-process workers through
// channels. Every message is deep-copied on send, so the two sides never
// share a buffer. One LocalTransport carries one job.
type LocalTransport struct {
	err       error
	failed    chan struct{}
	peers     []*localPeer
	failOnce  sync.Once
	abortOnce sync.Once
}

type localPeer struct {
	meta   chan Metadata
	chunk  chan ChunkMessage
	result chan ResultMessage
	abort  chan struct{}
	rank   int
}

// NewLocalTransport creates a mesh for size ranks. It panics if size < 1.
func NewLocalTransport(size int) *LocalTransport {
	if size < 1 {
		panic(fmt.Sprintf("cluster: transport size must be >= 1, got %d", size))
	}
	t := &LocalTransport{failed: make(chan struct{})}
	for rank := 1; rank < size; rank++ {
		t.peers = append(t.peers, &localPeer{
			rank:   rank,
			meta:   make(chan Metadata, 1),
			chunk:  make(chan ChunkMessage, 1),
			result: make(chan ResultMessage, 1),
			abort:  make(chan struct{}),
		})
	}
	return t
}

// Size implements Transport.
func (t *LocalTransport) Size() int { return len(t.peers) + 1 }

// Peer implements Transport.
func (t *LocalTransport) Peer(rank int) NodeInfo {
	return NodeInfo{ID: fmt.Sprintf("local-%d", rank), Addr: "local"}
}

// Endpoint returns the worker side of rank. It panics for rank 0 or an
// out-of-range rank.
func (t *LocalTransport) Endpoint(rank int) Endpoint {
	p, err := t.peer(rank)
	if err != nil {
		panic(err)
	}
	return &localEndpoint{peer: p}
}

// Fail marks the transport broken. Pending and future coordinator calls
// return an ErrTransport wrapping err. Only the first call has effect.
func (t *LocalTransport) Fail(err error) {
	t.failOnce.Do(func() {
		t.err = err
		close(t.failed)
	})
}

func (t *LocalTransport) failure() error {
	return fmt.Errorf("%w: %w", ErrTransport, t.err)
}

func (t *LocalTransport) peer(rank int) (*localPeer, error) {
	if rank < 1 || rank > len(t.peers) {
		return nil, fmt.Errorf("%w: no rank %d in a mesh of %d", ErrTransport, rank, t.Size())
	}
	return t.peers[rank-1], nil
}

// Broadcast implements Transport.
func (t *LocalTransport) Broadcast(ctx context.Context, m Metadata) error {
	for _, p := range t.peers {
		select {
		case p.meta <- m.Clone():
		case <-t.failed:
			return t.failure()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Send implements Transport.
func (t *LocalTransport) Send(ctx context.Context, c ChunkMessage) error {
	p, err := t.peer(c.Rank)
	if err != nil {
		return err
	}
	select {
	case p.chunk <- c.Clone():
		return nil
	case <-t.failed:
		return t.failure()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv implements Transport.
func (t *LocalTransport) Recv(ctx context.Context, rank int, jobID string) (ResultMessage, error) {
	p, err := t.peer(rank)
	if err != nil {
		return ResultMessage{}, err
	}
	select {
	case r := <-p.result:
		if r.JobID != jobID {
			return ResultMessage{}, fmt.Errorf("%w: rank %d answered job %q, want %q", ErrTransport, rank, r.JobID, jobID)
		}
		return r, nil
	case <-t.failed:
		return ResultMessage{}, t.failure()
	case <-ctx.Done():
		return ResultMessage{}, ctx.Err()
	}
}

// Abort implements Transport. Workers blocked on a receive or send return
// ErrAborted.
func (t *LocalTransport) Abort(_ context.Context, _ string) error {
	t.abortOnce.Do(func() {
		for _, p := range t.peers {
			close(p.abort)
		}
	})
	return nil
}

type localEndpoint struct {
	peer *localPeer
}

func (e *localEndpoint) Rank() int { return e.peer.rank }

func (e *localEndpoint) RecvMetadata(ctx context.Context) (Metadata, error) {
	select {
	case m := <-e.peer.meta:
		return m, nil
	case <-e.peer.abort:
		return Metadata{}, ErrAborted
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
}

func (e *localEndpoint) RecvChunk(ctx context.Context) (ChunkMessage, error) {
	select {
	case c := <-e.peer.chunk:
		return c, nil
	case <-e.peer.abort:
		return ChunkMessage{}, ErrAborted
	case <-ctx.Done():
		return ChunkMessage{}, ctx.Err()
	}
}

func (e *localEndpoint) SendResult(ctx context.Context, r ResultMessage) error {
	select {
	case e.peer.result <- r.Clone():
		return nil
	case <-e.peer.abort:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}
