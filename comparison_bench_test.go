package sparsebit

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
)

// Comparative benchmarks: AtomicBitSet vs Roaring Bitmap vs bits-and-blooms.
// Run with: go test -bench=Comparison -benchmem .
//
// Neither baseline is safe for concurrent mutation, so all comparisons here
// are single-threaded; AtomicBitSet pays its atomic-instruction cost even
// without contention.

const comparisonKeySpace = 1 << 20

// ==============================================================================
// Add comparison
// ==============================================================================

func BenchmarkComparison_Add_AtomicBitSet(b *testing.B) {
	s := New()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Add(uint64(i) % comparisonKeySpace)
	}
}

func BenchmarkComparison_Add_Roaring(b *testing.B) {
	rb := roaring.New()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rb.Add(uint32(i) % comparisonKeySpace)
	}
}

func BenchmarkComparison_Add_BitsAndBlooms(b *testing.B) {
	bs := bitset.New(comparisonKeySpace)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bs.Set(uint(i) % comparisonKeySpace)
	}
}

// ==============================================================================
// Contains comparison
// ==============================================================================

func BenchmarkComparison_Contains_AtomicBitSet(b *testing.B) {
	s := New()
	for v := uint64(0); v < comparisonKeySpace; v += 2 {
		s.Add(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Contains(uint64(i) % comparisonKeySpace)
	}
}

func BenchmarkComparison_Contains_Roaring(b *testing.B) {
	rb := roaring.New()
	for v := uint32(0); v < comparisonKeySpace; v += 2 {
		rb.Add(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rb.Contains(uint32(i) % comparisonKeySpace)
	}
}

func BenchmarkComparison_Contains_BitsAndBlooms(b *testing.B) {
	bs := bitset.New(comparisonKeySpace)
	for v := uint(0); v < comparisonKeySpace; v += 2 {
		bs.Set(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bs.Test(uint(i) % comparisonKeySpace)
	}
}

// ==============================================================================
// Add/Remove churn comparison
// ==============================================================================

func BenchmarkComparison_Churn_AtomicBitSet(b *testing.B) {
	s := New()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v := uint64(i) % comparisonKeySpace
		s.Add(v)
		s.Remove(v)
	}
}

func BenchmarkComparison_Churn_Roaring(b *testing.B) {
	rb := roaring.New()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v := uint32(i) % comparisonKeySpace
		rb.Add(v)
		rb.Remove(v)
	}
}

func BenchmarkComparison_Churn_BitsAndBlooms(b *testing.B) {
	bs := bitset.New(comparisonKeySpace)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v := uint(i) % comparisonKeySpace
		bs.Set(v)
		bs.Clear(v)
	}
}

// ==============================================================================
// Cardinality comparison
// ==============================================================================

func BenchmarkComparison_Cardinality_AtomicBitSet(b *testing.B) {
	s := New()
	for v := uint64(0); v < comparisonKeySpace; v += 2 {
		s.Add(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = s.Count()
	}
}

func BenchmarkComparison_Cardinality_Roaring(b *testing.B) {
	rb := roaring.New()
	for v := uint32(0); v < comparisonKeySpace; v += 2 {
		rb.Add(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = rb.GetCardinality()
	}
}

func BenchmarkComparison_Cardinality_BitsAndBlooms(b *testing.B) {
	bs := bitset.New(comparisonKeySpace)
	for v := uint(0); v < comparisonKeySpace; v += 2 {
		bs.Set(v)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = bs.Count()
	}
}
