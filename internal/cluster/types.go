package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NodeInfo identifies a remote worker node.
type NodeInfo struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// Metadata is the one broadcast message of a search job. Every rank,
// including the coordinator's own rank 0, works from an identical copy and
// derives its range from FileSize and Workers alone.
type Metadata struct {
	JobID      string `json:"job_id"`
	Pattern    []byte `json:"pattern"`
	PatternLen int    `json:"pattern_len"`
	FileSize   int64  `json:"file_size"`
	Workers    int    `json:"workers"`
}

// Validate checks the internal consistency of m.
func (m Metadata) Validate() error {
	switch {
	case m.JobID == "":
		return fmt.Errorf("metadata: missing job id")
	case m.PatternLen != len(m.Pattern):
		return fmt.Errorf("metadata: pattern length %d does not match pattern of %d bytes", m.PatternLen, len(m.Pattern))
	case m.FileSize < 0:
		return fmt.Errorf("metadata: negative file size %d", m.FileSize)
	case m.Workers < 1:
		return fmt.Errorf("metadata: worker count %d < 1", m.Workers)
	}
	return nil
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	m.Pattern = bytes.Clone(m.Pattern)
	return m
}

// JoinRequest delivers the metadata to a remote node together with the
// rank that node plays in the job.
type JoinRequest struct {
	Metadata Metadata `json:"metadata"`
	Rank     int      `json:"rank"`
}

// ChunkMessage carries one worker's chunk: the bytes of its range plus the
// overlap tail, and the global offset of the first byte.
type ChunkMessage struct {
	JobID    string `json:"job_id"`
	Data     []byte `json:"data"`
	Start    int64  `json:"start"`
	Checksum uint64 `json:"checksum"`
	Rank     int    `json:"rank"`
}

// Clone returns a deep copy of c.
func (c ChunkMessage) Clone() ChunkMessage {
	c.Data = bytes.Clone(c.Data)
	return c
}

// Verify reports whether the payload still matches its checksum.
func (c ChunkMessage) Verify() bool { return Checksum(c.Data) == c.Checksum }

// ResultMessage is a worker's answer: the offsets it found inside its own
// range, ascending.
type ResultMessage struct {
	JobID   string  `json:"job_id"`
	Offsets []int64 `json:"offsets"`
	Rank    int     `json:"rank"`
	Count   int     `json:"count"`
}

// Clone returns a deep copy of r.
func (r ResultMessage) Clone() ResultMessage {
	if r.Offsets != nil {
		r.Offsets = append([]int64(nil), r.Offsets...)
	}
	return r
}

// Checksum is the integrity hash attached to every chunk payload.
func Checksum(data []byte) uint64 { return xxhash.Sum64(data) }

// Client speaks JSON over HTTP to worker nodes.
type Client struct {
	http *http.Client
}

// NewClient wraps hc; a nil hc means a client with no overall timeout,
// since a result request legitimately blocks until the worker finishes.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc}
}

// PostJSON sends body as JSON and decodes the response into out when out
// is non-nil.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// Delete issues a DELETE to url.
func (c *Client) Delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %s %s: %d %s", req.Method, req.URL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
