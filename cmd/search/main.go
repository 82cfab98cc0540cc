// Package main implements the search command, which reports the byte
// offset of every occurrence of a pattern in a file using P cooperating
// ranks.
//
// By default the ranks run in this process: rank 0 is the coordinator and
// ranks 1..P-1 are goroutines. When SEARCH_NODES is set, ranks 1..P-1 are
// remote node services (see cmd/node) and P is one more than the number of
// nodes.
//
// Configuration:
//   - SEARCH_WORKERS: number of in-process ranks (default: runtime.NumCPU())
//   - SEARCH_NODES: comma-separated node URLs, e.g. "http://h1:8081,http://h2:8081"
//   - SEARCH_VERBOSE: any non-empty value logs protocol progress to stderr
//
// Example usage:
//
//	SEARCH_WORKERS=8 ./search needle haystack.txt
//	SEARCH_NODES=http://10.0.0.2:8081,http://10.0.0.3:8081 ./search needle haystack.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/dreamware/scanmesh/internal/cluster"
	"github.com/dreamware/scanmesh/internal/coordinator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one search and returns the process exit code: 0 on
// success, 2 on a usage error and 1 on any other failure.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(io.Discard, "", 0)
	if getenv("SEARCH_VERBOSE", "") != "" {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	err := search(ctx, args, stdout, logger)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, coordinator.ErrUsage):
		fmt.Fprintf(stderr, "Usage: search <pattern> <file name>\n")
		return 2
	default:
		fmt.Fprintf(stderr, "search: %v\n", err)
		return 1
	}
}

func search(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) error {
	// Arguments are checked before any node is contacted.
	if _, err := coordinator.ParseArgs(args); err != nil {
		return err
	}

	if list := getenv("SEARCH_NODES", ""); list != "" {
		nodes, err := parseNodes(list)
		if err != nil {
			return err
		}
		if _, err := coordinator.NewHealthChecker(logger).WaitHealthy(ctx, nodes); err != nil {
			return err
		}
		logger.Printf("search[http]: %d remote nodes healthy", len(nodes))
		t := cluster.NewHTTPTransport(nodes, nil)
		return coordinator.New(t, logger).Run(ctx, args, stdout)
	}

	workers, err := strconv.Atoi(getenv("SEARCH_WORKERS", strconv.Itoa(runtime.NumCPU())))
	if err != nil || workers < 1 {
		return fmt.Errorf("%w: SEARCH_WORKERS must be a positive integer", coordinator.ErrValidation)
	}
	logger.Printf("search[local]: %d in-process ranks", workers)
	return coordinator.RunLocal(ctx, workers, args, stdout, logger)
}

// parseNodes turns "url1,url2" into node descriptors named node-1, node-2...
// A node serves a single rank per job, so an address may appear only once.
func parseNodes(list string) ([]cluster.NodeInfo, error) {
	var nodes []cluster.NodeInfo
	seen := make(map[string]string)
	for _, addr := range strings.Split(list, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			addr = "http://" + addr
		}
		addr = strings.TrimRight(addr, "/")
		id := fmt.Sprintf("node-%d", len(nodes)+1)
		if prev, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: SEARCH_NODES lists %s twice (%s and %s)", coordinator.ErrValidation, addr, prev, id)
		}
		seen[addr] = id
		nodes = append(nodes, cluster.NodeInfo{ID: id, Addr: addr})
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: SEARCH_NODES lists no nodes", coordinator.ErrValidation)
	}
	return nodes, nil
}

// getenv retrieves an environment variable with a default fallback value.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
