// This file implements the pre-run health probe of remote worker nodes.

package coordinator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/scanmesh/internal/cluster"
)

// NodeHealth is the outcome of probing a single node.
type NodeHealth struct {
	LastCheck time.Time // Time of the last probe attempt
	NodeID    string    // Identifier of the node
	Status    string    // "healthy" or "unhealthy"
	LastError string    // Error of the last failed probe, if any
	Attempts  int       // Probes made before the node answered or was given up on
}

// HealthChecker probes every node a job will use before the job starts.
// A node is given up on after maxFailures consecutive failed probes.
type HealthChecker struct {
	checkFunc   func(ctx context.Context, addr string) error
	httpClient  *http.Client
	logger      *log.Logger
	interval    time.Duration // pause between probes of the same node
	maxFailures int
}

// NewHealthChecker returns a checker that probes each node's /health
// endpoint up to 3 times, 200ms apart. A nil logger uses log.Default().
func NewHealthChecker(logger *log.Logger) *HealthChecker {
	if logger == nil {
		logger = log.Default()
	}
	h := &HealthChecker{
		interval:    200 * time.Millisecond,
		maxFailures: 3,
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		logger:      logger,
	}
	h.checkFunc = h.defaultHealthCheck
	return h
}

// SetCheckFunction replaces the probe, mainly for tests.
func (h *HealthChecker) SetCheckFunction(f func(ctx context.Context, addr string) error) {
	h.checkFunc = f
}

// SetRetry changes how often and how far apart a node is probed.
func (h *HealthChecker) SetRetry(maxFailures int, interval time.Duration) {
	if maxFailures < 1 {
		maxFailures = 1
	}
	h.maxFailures = maxFailures
	h.interval = interval
}

// WaitHealthy probes all nodes concurrently and returns their health in
// input order. The error wraps ErrTransport and names every node that
// never answered.
func (h *HealthChecker) WaitHealthy(ctx context.Context, nodes []cluster.NodeInfo) ([]NodeHealth, error) {
	out := make([]NodeHealth, len(nodes))
	var wg sync.WaitGroup
	for i, n := range nodes {
		wg.Add(1)
		go func(i int, n cluster.NodeInfo) {
			defer wg.Done()
			out[i] = h.probe(ctx, n)
		}(i, n)
	}
	wg.Wait()

	var bad []string
	for _, nh := range out {
		if nh.Status != "healthy" {
			bad = append(bad, fmt.Sprintf("%s (%s)", nh.NodeID, nh.LastError))
		}
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("%w: unhealthy nodes: %s", ErrTransport, strings.Join(bad, ", "))
	}
	return out, nil
}

func (h *HealthChecker) probe(ctx context.Context, node cluster.NodeInfo) NodeHealth {
	nh := NodeHealth{NodeID: node.ID, Status: "unhealthy"}
	for nh.Attempts < h.maxFailures {
		nh.Attempts++
		nh.LastCheck = time.Now()
		err := h.checkFunc(ctx, node.Addr)
		if err == nil {
			nh.Status = "healthy"
			nh.LastError = ""
			return nh
		}
		nh.LastError = err.Error()
		h.logger.Printf("Health check failed for node %s (attempt %d/%d): %v",
			node.ID, nh.Attempts, h.maxFailures, err)
		if nh.Attempts == h.maxFailures {
			break
		}
		select {
		case <-ctx.Done():
			nh.LastError = ctx.Err().Error()
			return nh
		case <-time.After(h.interval):
		}
	}
	return nh
}

// defaultHealthCheck GETs the node's /health endpoint and expects 200 OK.
func (h *HealthChecker) defaultHealthCheck(ctx context.Context, addr string) error {
	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = fmt.Sprintf("http://%s", addr)
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
