// Package main implements the node service, a remote worker for search
// jobs. A node serves any number of jobs over its lifetime, each as one
// rank; the coordinator addresses it by URL (see SEARCH_NODES in
// cmd/search).
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Node                     │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    GET    /health            liveness   │
//	│    GET    /info              counters   │
//	│    POST   /jobs              join       │
//	│    POST   /jobs/{id}/chunk   chunk      │
//	│    GET    /jobs/{id}/result  result     │
//	│    DELETE /jobs/{id}         abort      │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - NODE_ID: Unique node identifier (required)
//   - NODE_LISTEN: Listen address (default: ":8081")
//
// Example usage:
//
//	NODE_ID=node-1 NODE_LISTEN=:8081 ./node
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/scanmesh/internal/node"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
// This indirection enables test code to intercept fatal errors
// without actually terminating the test process.
var logFatal = log.Fatalf

func main() {
	nodeID := mustGetenv("NODE_ID")
	listen := getenv("NODE_LISTEN", ":8081")

	n, s := newServer(nodeID, listen)

	go func() {
		log.Printf("node[%s] listening on %s", nodeID, listen)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	// Workers of jobs still in flight see an abort.
	n.Close()
	log.Println("node stopped")
}

// newServer builds the node and the HTTP server exposing it. The write
// timeout is left unset because a result request blocks until the worker
// has scanned its chunk.
func newServer(id, listen string) (*node.Node, *http.Server) {
	n := node.New(id, log.Default())
	return n, &http.Server{
		Addr:              listen,
		Handler:           n.Handler(),
		ReadHeaderTimeout: 5 * time.Second, // Prevent slowloris attacks
	}
}

// getenv retrieves an environment variable with a default fallback value.
//
// Example:
//
//	listen := getenv("NODE_LISTEN", ":8081")
//	// Returns $NODE_LISTEN if set, otherwise ":8081"
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv retrieves a required environment variable, terminating the
// program if it's not set.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}
