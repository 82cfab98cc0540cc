package cluster

import (
	"context"
	"errors"
)

var (
	// ErrTransport marks any failure to move a message between ranks.
	// Every error returned by a Transport or Endpoint wraps it, except
	// ErrAborted and context errors.
	ErrTransport = errors.New("transport failure")
	// ErrAborted is returned to a worker whose job was aborted by the
	// coordinator.
	ErrAborted = errors.New("job aborted")
)

// Transport is the coordinator's side of the message-passing protocol.
// Rank 0 is the coordinator itself and is never addressed; ranks
// 1..Size()-1 are remote workers.
//
// A job is exactly one Broadcast, Size()-1 Sends and Size()-1 Recvs, the
// receives issued in ascending rank order. Abort may follow any of them.
type Transport interface {
	// Size returns the total number of ranks, coordinator included.
	Size() int
	// Peer describes the worker behind rank.
	Peer(rank int) NodeInfo
	// Broadcast delivers identical metadata to every remote rank.
	Broadcast(ctx context.Context, m Metadata) error
	// Send delivers a chunk to the rank named in the message.
	Send(ctx context.Context, c ChunkMessage) error
	// Recv blocks until rank reports its result for jobID.
	Recv(ctx context.Context, rank int, jobID string) (ResultMessage, error)
	// Abort tells every remote rank to drop jobID.
	Abort(ctx context.Context, jobID string) error
}

// Endpoint is one worker's side of the protocol.
type Endpoint interface {
	Rank() int
	RecvMetadata(ctx context.Context) (Metadata, error)
	RecvChunk(ctx context.Context) (ChunkMessage, error)
	SendResult(ctx context.Context, r ResultMessage) error
}
