// Package jobs implements the asynchronous job queue driving the
// vectorization pipeline.
//
// Every job is persisted before it is visible to workers, and every
// state transition is written through before it is signaled: the
// persisted row is the source of truth, and the in-memory completion
// channels are purely an optimization for waiters. A waiter that
// subscribes after completion, or after a process restart, reads the
// outcome from storage.
package jobs
