// Package cluster defines the message-passing protocol between the search
// coordinator and its workers, and the transports that carry it.
//
// # Overview
//
// A search job runs on a fixed set of P ranks. Rank 0 is the coordinator,
// which also does its own share of the matching; ranks 1..P-1 are workers
// that never touch the source file. Workers share no memory with the
// coordinator or with each other: everything they know arrives as a message.
//
// # Protocol
//
// One job is a finite sequence of typed messages:
//
//	coordinator                              rank i (1..P-1)
//	    │ ── Metadata (broadcast) ──────────────▶ │  computes its own range
//	    │ ── ChunkMessage (point-to-point) ─────▶ │  range bytes + overlap
//	    │                                         │  runs the matcher
//	    │ ◀───────────────────── ResultMessage ── │  count + offsets
//
// Metadata carries the pattern, the pattern length, the file size and the
// rank count. It is the barrier that lets every rank evaluate the
// partition function on identical inputs. Chunks differ in size per rank,
// so they are addressed point-to-point. Results are received strictly in
// ascending rank order because that order is the global offset order.
//
// Each chunk carries an xxhash checksum of its payload; a worker that sees
// a mismatch fails the job.
//
// # Transports
//
// LocalTransport runs workers as goroutines connected by channels. Messages
// are deep-copied on send so the no-shared-memory rule holds inside one
// process.
//
// HTTPTransport addresses worker nodes (see internal/node) over HTTP/JSON
// using Client, the JSON helper shared by both sides.
//
// # Failure Handling
//
// Every failure is fatal to the job. There is no retry and no partial
// result: errors from a transport wrap ErrTransport, and the coordinator
// answers any error with Abort, which makes workers return ErrAborted.
package cluster
