// Package node implements the worker node service: an HTTP server that
// plays remote ranks in search jobs driven by a coordinator. Jobs are keyed
// by job ID, so a node serves any number of concurrent jobs but only one
// rank of each; a second join for the same job is rejected with 409.
//
// Each job gets its own mailbox. The HTTP handlers deliver protocol
// messages into it, a worker goroutine consumes them, and the worker's
// result is handed back to the coordinator's blocking result request.
//
// Endpoints:
//
//	GET    /health             liveness probe
//	GET    /info               node id, active jobs, cumulative stats
//	POST   /jobs               JoinRequest: metadata and rank, starts a worker
//	POST   /jobs/{id}/chunk    ChunkMessage for the job's worker
//	GET    /jobs/{id}/result   ResultMessage, blocks until the worker reports
//	DELETE /jobs/{id}          abort the job (idempotent)
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/mailbox"
	"github.com/dreamware/scanmesh/internal/worker"
)

const (
	keyMetadata = "metadata"
	keyChunk    = "chunk"
	keyResult   = "result"
)

// Node is the runtime state of one worker node.
type Node struct {
	jobs   map[string]*job
	logger *log.Logger
	stats  *worker.Stats
	ID     string
	mu     sync.Mutex
}

type job struct {
	box    *mailbox.Mailbox
	cancel context.CancelFunc
	done   chan struct{}
	rank   int
}

// New creates a node. A nil logger uses log.Default().
func New(id string, logger *log.Logger) *Node {
	if logger == nil {
		logger = log.Default()
	}
	return &Node{
		ID:     id,
		jobs:   make(map[string]*job),
		logger: logger,
		stats:  &worker.Stats{},
	}
}

// Handler returns the node's HTTP API.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /info", n.handleInfo)
	mux.HandleFunc("POST /jobs", n.handleJoin)
	mux.HandleFunc("POST /jobs/{id}/chunk", n.handleChunk)
	mux.HandleFunc("GET /jobs/{id}/result", n.handleResult)
	mux.HandleFunc("DELETE /jobs/{id}", n.handleAbort)
	return mux
}

// Close aborts every job still running on the node and waits for their
// workers to return.
func (n *Node) Close() {
	n.mu.Lock()
	jobs := make([]*job, 0, len(n.jobs))
	for id, j := range n.jobs {
		jobs = append(jobs, j)
		delete(n.jobs, id)
	}
	n.mu.Unlock()

	for _, j := range jobs {
		j.stop()
	}
}

// Stats returns the node's cumulative worker counters.
func (n *Node) Stats() worker.StatsSnapshot { return n.stats.Snapshot() }

func (n *Node) lookup(id string) *job {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.jobs[id]
}

func (n *Node) remove(id string) *job {
	n.mu.Lock()
	defer n.mu.Unlock()
	j := n.jobs[id]
	delete(n.jobs, id)
	return j
}

func (j *job) stop() {
	j.box.Close(cluster.ErrAborted)
	j.cancel()
	<-j.done
}

// handleJoin registers a job and starts its worker.
//
// Response:
//   - 204 No Content: worker started
//   - 400 Bad Request: malformed request or inconsistent metadata
//   - 409 Conflict: job id already active on this node
func (n *Node) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req cluster.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Metadata.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rank < 1 || req.Rank >= req.Metadata.Workers {
		http.Error(w, fmt.Sprintf("rank %d outside job of %d workers", req.Rank, req.Metadata.Workers), http.StatusBadRequest)
		return
	}
	raw, err := json.Marshal(req.Metadata)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := req.Metadata.JobID
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{box: mailbox.New(), cancel: cancel, done: make(chan struct{}), rank: req.Rank}

	n.mu.Lock()
	if _, exists := n.jobs[id]; exists {
		n.mu.Unlock()
		cancel()
		http.Error(w, "job already active", http.StatusConflict)
		return
	}
	n.jobs[id] = j
	n.mu.Unlock()

	// The slot is fresh, so Put cannot fail.
	_ = j.box.Put(keyMetadata, raw)
	go n.run(ctx, id, j)

	n.logger.Printf("node[%s] job %s: joined as rank %d of %d", n.ID, id, req.Rank, req.Metadata.Workers)
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) run(ctx context.Context, id string, j *job) {
	defer close(j.done)
	defer j.cancel()

	rep, err := worker.Serve(ctx, &endpoint{rank: j.rank, box: j.box}, n.stats)
	if err != nil {
		// Unblock a pending result request with the cause.
		j.box.Close(err)
		if !errors.Is(err, cluster.ErrAborted) && !errors.Is(err, context.Canceled) {
			n.logger.Printf("node[%s] job %s: rank %d failed: %v", n.ID, id, j.rank, err)
		}
		return
	}
	n.logger.Printf("node[%s] job %s: rank %d scanned %d bytes of %v, %d matches in %v",
		n.ID, id, rep.Rank, rep.Bytes, rep.Range, rep.Matches, rep.Elapsed)
}

// handleChunk delivers a chunk to the job's worker.
//
// Response:
//   - 204 No Content: chunk queued
//   - 400 Bad Request: body is not a chunk for this job
//   - 404 Not Found: unknown job
//   - 409 Conflict: chunk already delivered, or job already failed
func (n *Node) handleChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	j := n.lookup(id)
	if j == nil {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var c cluster.ChunkMessage
	if err := json.Unmarshal(raw, &c); err != nil || c.JobID != id {
		http.Error(w, "body is not a chunk for this job", http.StatusBadRequest)
		return
	}
	if err := j.box.Put(keyChunk, raw); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResult blocks until the job's worker reports, then returns the
// result and forgets the job.
//
// Response:
//   - 200 OK: ResultMessage
//   - 404 Not Found: unknown job
//   - 500 Internal Server Error: the worker failed; body names the cause
func (n *Node) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	j := n.lookup(id)
	if j == nil {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	raw, err := j.box.Take(r.Context(), keyResult)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		n.remove(id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	n.remove(id)

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(raw); err != nil {
		n.logger.Printf("node[%s] job %s: error writing result: %v", n.ID, id, err)
	}
}

// handleAbort drops a job. Unknown jobs are not an error.
func (n *Node) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if j := n.remove(id); j != nil {
		j.stop()
		n.logger.Printf("node[%s] job %s: aborted", n.ID, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInfo reports the node id, active jobs and cumulative counters.
func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	type jobInfo struct {
		ID    string        `json:"id"`
		Slots []string      `json:"pending"`
		Rank  int           `json:"rank"`
		Box   mailbox.Stats `json:"mailbox"`
	}

	n.mu.Lock()
	jobs := make([]jobInfo, 0, len(n.jobs))
	for id, j := range n.jobs {
		jobs = append(jobs, jobInfo{ID: id, Rank: j.rank, Slots: j.box.Keys(), Box: j.box.Stats()})
	}
	n.mu.Unlock()
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })

	response := struct {
		NodeID string               `json:"node_id"`
		Jobs   []jobInfo            `json:"jobs"`
		Stats  worker.StatsSnapshot `json:"stats"`
	}{
		NodeID: n.ID,
		Jobs:   jobs,
		Stats:  n.stats.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// endpoint is the worker side of a job, backed by the job's mailbox.
type endpoint struct {
	box  *mailbox.Mailbox
	rank int
}

func (e *endpoint) Rank() int { return e.rank }

func (e *endpoint) RecvMetadata(ctx context.Context) (cluster.Metadata, error) {
	var m cluster.Metadata
	err := e.take(ctx, keyMetadata, &m)
	return m, err
}

func (e *endpoint) RecvChunk(ctx context.Context) (cluster.ChunkMessage, error) {
	var c cluster.ChunkMessage
	err := e.take(ctx, keyChunk, &c)
	return c, err
}

func (e *endpoint) SendResult(_ context.Context, r cluster.ResultMessage) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return e.box.Put(keyResult, raw)
}

func (e *endpoint) take(ctx context.Context, key string, out any) error {
	raw, err := e.box.Take(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", cluster.ErrTransport, key, err)
	}
	return nil
}
