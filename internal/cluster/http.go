package cluster

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HTTPTransport addresses remote worker nodes over HTTP. Rank i is served
// by nodes[i-1]. The node API is:
//
//	POST   /jobs               JoinRequest
//	POST   /jobs/{id}/chunk    ChunkMessage
//	GET    /jobs/{id}/result   ResultMessage (blocks until ready)
//	DELETE /jobs/{id}
type HTTPTransport struct {
	client *Client
	nodes  []NodeInfo
}

// NewHTTPTransport returns a transport over nodes. A nil client uses
// NewClient(nil).
func NewHTTPTransport(nodes []NodeInfo, client *Client) *HTTPTransport {
	if client == nil {
		client = NewClient(nil)
	}
	return &HTTPTransport{
		nodes:  append([]NodeInfo(nil), nodes...),
		client: client,
	}
}

// Size implements Transport.
func (t *HTTPTransport) Size() int { return len(t.nodes) + 1 }

// Peer implements Transport.
func (t *HTTPTransport) Peer(rank int) NodeInfo {
	n, err := t.node(rank)
	if err != nil {
		return NodeInfo{}
	}
	return n
}

func (t *HTTPTransport) node(rank int) (NodeInfo, error) {
	if rank < 1 || rank > len(t.nodes) {
		return NodeInfo{}, fmt.Errorf("%w: no rank %d among %d nodes", ErrTransport, rank, len(t.nodes))
	}
	return t.nodes[rank-1], nil
}

func jobURL(n NodeInfo, jobID, suffix string) string {
	return strings.TrimRight(n.Addr, "/") + "/jobs/" + url.PathEscape(jobID) + suffix
}

// Broadcast implements Transport.
func (t *HTTPTransport) Broadcast(ctx context.Context, m Metadata) error {
	for i, n := range t.nodes {
		req := JoinRequest{Rank: i + 1, Metadata: m}
		if err := t.client.PostJSON(ctx, strings.TrimRight(n.Addr, "/")+"/jobs", req, nil); err != nil {
			return fmt.Errorf("%w: metadata to %s: %w", ErrTransport, n.ID, err)
		}
	}
	return nil
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, c ChunkMessage) error {
	n, err := t.node(c.Rank)
	if err != nil {
		return err
	}
	if err := t.client.PostJSON(ctx, jobURL(n, c.JobID, "/chunk"), c, nil); err != nil {
		return fmt.Errorf("%w: chunk to %s: %w", ErrTransport, n.ID, err)
	}
	return nil
}

// Recv implements Transport.
func (t *HTTPTransport) Recv(ctx context.Context, rank int, jobID string) (ResultMessage, error) {
	n, err := t.node(rank)
	if err != nil {
		return ResultMessage{}, err
	}
	var r ResultMessage
	if err := t.client.GetJSON(ctx, jobURL(n, jobID, "/result"), &r); err != nil {
		return ResultMessage{}, fmt.Errorf("%w: result from %s: %w", ErrTransport, n.ID, err)
	}
	return r, nil
}

// Abort implements Transport. It tries every node and reports all failures.
func (t *HTTPTransport) Abort(ctx context.Context, jobID string) error {
	var errs []error
	for _, n := range t.nodes {
		if err := t.client.Delete(ctx, jobURL(n, jobID, "")); err != nil {
			errs = append(errs, fmt.Errorf("abort on %s: %w", n.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}
