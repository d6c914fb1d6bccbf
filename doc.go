// Package sparsebit provides a lock-free, sparse, unbounded atomic bit set.
//
// AtomicBitSet is a set of uint64 values backed by lazily allocated,
// geometrically sized buckets of atomic words.
//
// Architecture:
//   - Geometric buckets: bucket i holds 2^i 64-bit words, so the bucket for
//     any word index is found with one bit-length computation and growth
//     never copies or moves published data
//   - Lock-free: bucket slots are atomic.Pointer cells published exactly
//     once via CompareAndSwap; words are atomic.Uint64 mutated in place
//   - Lazy allocation: a bucket exists only after the first Add lands in it
//   - Unbounded: every uint64 is addressable; there is no capacity to
//     configure and no resize event
//
// Add, Remove and Contains never block and are safe for any number of
// concurrent goroutines. The only cost beyond a handful of atomic
// instructions is one allocation plus one CompareAndSwap on the first
// access to each bucket.
//
// Allocation failure is fatal by design: the set's contract is that every
// value is representable, so there is no degraded-capacity mode and no
// soft-failure path. A failed bucket allocation terminates the process
// (Go runtime throw) before any bit is mutated.
//
// Typical uses are entity liveness tracking, id allocators and sparse flag
// arrays where the value domain is large and occupancy is thin:
//
//	set := sparsebit.New()
//	set.Add(42)
//	set.Contains(42) // true
//	set.Remove(42)   // true (was present)
//
// Snapshots serialize the published buckets with optional LZ4 or ZSTD
// compression; see Snapshot and Restore for the concurrency contracts.
package sparsebit
