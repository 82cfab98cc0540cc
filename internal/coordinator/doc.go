// Package coordinator implements rank 0 of a distributed pattern search.
//
// # Overview
//
// A search job splits one source file into contiguous byte ranges, one per
// rank. The coordinator owns rank 0. It reads every chunk, ships chunks
// 1..P-1 to the remote ranks over a cluster.Transport, matches its own
// chunk locally and collects the remote results in rank order. Because the
// ranges are ascending and disjoint, concatenating the per-rank lists gives
// the final ascending offset list without a sort.
//
// # Run states
//
//	Init -> ValidateArgs -> OpenFile -> BroadcastMetadata -> DistributeChunks
//	     -> AwaitResults -> Aggregate -> Emit -> Terminate
//
// Any error moves the run to Fail. The returned *RunError records the state
// that failed and wraps one of ErrUsage, ErrValidation, ErrIO, ErrTransport,
// ErrAllocation or ErrProtocol. Once metadata has been broadcast, a failure
// aborts the job on every remote rank before returning; there is no partial
// output.
//
// # Overlap
//
// Each chunk carries max(len(pattern)-1, 0) bytes past the end of its range
// so that a match straddling a boundary is visible to the rank whose range
// holds its first byte. Ranks report only starts inside their own range, so
// no match is counted twice.
//
// # Supporting pieces
//
//   - Assignments tracks each rank's node, range and progress for a job.
//   - HealthChecker probes remote nodes before a job is started on them.
//   - RunLocal wires the coordinator to in-process workers.
package coordinator
