// Package store provides SQLite-backed durable storage for job lifecycle events.
//
// The store is an append-only log of every transition the tracker emits:
// launched, progress, retrying and the terminal completed / failed /
// cancelled events. It implements tracker.Recorder so an Engine can write
// to it directly.
//
// # Critical Patterns
//
// Idempotent Writes
//   - UNIQUE(job_id, seq) constraint
//   - Re-recording the same event is a silent no-op
//
// Logical Ordering
//   - All ordering uses seq INTEGER (the engine's logical clock), never
//     recorded_at
//   - Callers resume the clock with MaxSeq so seq stays monotonic across runs
//
// Deterministic Query Results
//   - Queries order by seq, then id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
