// Package degradation tracks which capabilities of the client are usable.
//
// A Coordinator probes a static capability table on an interval and folds
// the answers into a Level: CRITICAL when any essential capability is
// down, NONE when nothing is, OFFLINE when more than half is, PARTIAL
// otherwise. Read and Write route calls to the offline cache and queue
// while a capability is down, and the queue is replayed when the client
// returns to NONE.
package degradation
