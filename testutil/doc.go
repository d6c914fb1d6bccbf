// Package testutil provides testing utilities for sparsebit.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random number generator so concurrent
// tests and benchmarks stay reproducible:
//
//	rng := testutil.NewRNG(seed)
//	v := rng.Uint64n(1 << 40)
//	keys := rng.Keys(10_000, 1<<32)
package testutil
