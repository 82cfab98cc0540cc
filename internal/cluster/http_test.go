package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode records what the transport sends and answers result requests
// with a canned message.
type fakeNode struct {
	mu      sync.Mutex
	joins   []JoinRequest
	chunks  []ChunkMessage
	deletes []string
	result  ResultMessage
	fail    bool
}

func (f *fakeNode) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			http.Error(w, "node is broken", http.StatusInternalServerError)
			return
		}
		var req JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.joins = append(f.joins, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /jobs/{id}/chunk", func(w http.ResponseWriter, r *http.Request) {
		var c ChunkMessage
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.chunks = append(f.chunks, c)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /jobs/{id}/result", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(f.result)
	})
	mux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deletes = append(f.deletes, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestHTTPTransport(t *testing.T) {
	ctx := context.Background()
	n1 := &fakeNode{}
	n2 := &fakeNode{result: ResultMessage{JobID: "job-1", Rank: 2, Count: 2, Offsets: []int64{7, 9}}}
	s1 := httptest.NewServer(n1.handler())
	defer s1.Close()
	s2 := httptest.NewServer(n2.handler())
	defer s2.Close()

	tr := NewHTTPTransport([]NodeInfo{{ID: "n1", Addr: s1.URL}, {ID: "n2", Addr: s2.URL + "/"}}, nil)
	assert.Equal(t, 3, tr.Size())
	assert.Equal(t, "n2", tr.Peer(2).ID)
	assert.Equal(t, NodeInfo{}, tr.Peer(3))

	meta := Metadata{JobID: "job-1", Pattern: []byte("xy"), PatternLen: 2, FileSize: 11, Workers: 3}
	require.NoError(t, tr.Broadcast(ctx, meta))
	require.Len(t, n1.joins, 1)
	require.Len(t, n2.joins, 1)
	assert.Equal(t, 1, n1.joins[0].Rank)
	assert.Equal(t, 2, n2.joins[0].Rank)
	assert.Equal(t, meta, n2.joins[0].Metadata)

	payload := []byte("\x00binary\xff")
	require.NoError(t, tr.Send(ctx, ChunkMessage{JobID: "job-1", Rank: 1, Start: 0, Data: payload, Checksum: Checksum(payload)}))
	require.Len(t, n1.chunks, 1)
	assert.Equal(t, payload, n1.chunks[0].Data)
	assert.True(t, n1.chunks[0].Verify())

	r, err := tr.Recv(ctx, 2, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, r.Offsets)

	require.NoError(t, tr.Abort(ctx, "job-1"))
	assert.Equal(t, []string{"job-1"}, n1.deletes)
	assert.Equal(t, []string{"job-1"}, n2.deletes)
}

func TestHTTPTransportErrors(t *testing.T) {
	ctx := context.Background()
	broken := &fakeNode{fail: true}
	s := httptest.NewServer(broken.handler())
	defer s.Close()

	tr := NewHTTPTransport([]NodeInfo{{ID: "broken", Addr: s.URL}}, nil)
	err := tr.Broadcast(ctx, Metadata{JobID: "j", Workers: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "node is broken")

	err = tr.Send(ctx, ChunkMessage{JobID: "j", Rank: 2})
	assert.ErrorIs(t, err, ErrTransport)

	s.Close()
	_, err = tr.Recv(ctx, 1, "j")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, tr.Abort(ctx, "j"), ErrTransport)
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{JobID: "j", Pattern: []byte("ab"), PatternLen: 2, FileSize: 4, Workers: 2}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"missing job", func(m *Metadata) { m.JobID = "" }},
		{"length mismatch", func(m *Metadata) { m.PatternLen = 3 }},
		{"negative size", func(m *Metadata) { m.FileSize = -1 }},
		{"no workers", func(m *Metadata) { m.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid.Clone()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	c := ChunkMessage{Data: []byte("payload")}
	c.Checksum = Checksum(c.Data)
	assert.True(t, c.Verify())
	c.Data[0] = 'P'
	assert.False(t, c.Verify())
}
