package sparsebit

import (
	"math/bits"
	"sync/atomic"
)

const (
	// wordBits is the number of bits per atomic word.
	wordBits = 64

	// bucketCount is the number of bucket slots. Bucket i holds 2^i words,
	// so 64 doublings cover the word index of every uint64 value.
	bucketCount = 64
)

// AtomicBitSet is a lock-free, sparse, unbounded set of uint64 values.
//
// Key properties:
//   - Geometric buckets: bucket i holds 2^i words, published at most once
//     per slot; growth never copies or moves existing data
//   - Lock-free: atomic.Pointer slots, atomic.Uint64 words
//   - Lazy allocation: a bucket exists only after the first Add lands in it
//
// Add, Remove and Contains are safe for any number of concurrent callers
// without external synchronization. Reset and Restore require exclusive
// access; see their docs.
type AtomicBitSet struct {
	buckets [bucketCount]atomic.Pointer[[]atomic.Uint64]
}

// New creates an empty AtomicBitSet. No bucket memory is allocated until
// the first Add.
func New() *AtomicBitSet {
	return &AtomicBitSet{}
}

// bucketIndex maps a word index to its bucket number, the bucket's word
// count, and the word's offset within the bucket.
//
// Buckets double in size, so the cumulative capacity of buckets 0..i-1 is
// 2^i - 1 words. Inverting that series is a single bit-length computation,
// no loop or search.
func bucketIndex(k uint64) (bucket int, size uint64, offset uint64) {
	bucket = bits.Len64(k+1) - 1
	size = 1 << bucket
	offset = k - (size - 1)
	return
}

// acquireBucket returns the words backing the given bucket, publishing a
// zeroed allocation if the slot is still empty. At most one allocation per
// slot ever becomes visible: losers of the CompareAndSwap race drop their
// speculative slice for the GC to reclaim.
//
// Allocation failure is a runtime throw that terminates the process. The
// set has no degraded-capacity mode: every uint64 is addressable or the
// process dies, it never silently drops a write.
func (s *AtomicBitSet) acquireBucket(bucket int, size uint64) []atomic.Uint64 {
	if b := s.buckets[bucket].Load(); b != nil {
		return *b
	}
	fresh := make([]atomic.Uint64, size)
	if s.buckets[bucket].CompareAndSwap(nil, &fresh) {
		return fresh
	}
	return *s.buckets[bucket].Load()
}

// Add inserts v into the set and reports whether v was already present.
// The first Add landing in an unpublished bucket allocates it; every later
// operation on that bucket is allocation free.
func (s *AtomicBitSet) Add(v uint64) bool {
	bucket, size, offset := bucketIndex(v / wordBits)
	mask := uint64(1) << (v % wordBits)
	words := s.acquireBucket(bucket, size)
	return words[offset].Or(mask)&mask != 0
}

// Remove deletes v from the set and reports whether v was present.
// Removal never allocates: an unpublished bucket cannot hold the value.
// A value in an unpublished bucket and a clear bit in a published one are
// indistinguishable, both report false.
func (s *AtomicBitSet) Remove(v uint64) bool {
	bucket, _, offset := bucketIndex(v / wordBits)
	b := s.buckets[bucket].Load()
	if b == nil {
		return false
	}
	mask := uint64(1) << (v % wordBits)
	return (*b)[offset].And(^mask)&mask != 0
}

// Contains reports whether v is in the set. It never allocates.
//
// A Contains racing a concurrent Add or Remove of the same value observes
// either the pre- or post-state, never a torn word.
func (s *AtomicBitSet) Contains(v uint64) bool {
	bucket, _, offset := bucketIndex(v / wordBits)
	b := s.buckets[bucket].Load()
	if b == nil {
		return false
	}
	mask := uint64(1) << (v % wordBits)
	return (*b)[offset].Load()&mask != 0
}

// Count returns the number of values in the set. Under concurrent mutation
// the result is consistent per word, not across the whole set.
func (s *AtomicBitSet) Count() uint64 {
	var n uint64
	for i := range s.buckets {
		b := s.buckets[i].Load()
		if b == nil {
			continue
		}
		for j := range *b {
			n += uint64(bits.OnesCount64((*b)[j].Load()))
		}
	}
	return n
}

// IsEmpty reports whether the set holds no values. Like Count, the answer
// is a snapshot under concurrent mutation.
func (s *AtomicBitSet) IsEmpty() bool {
	for i := range s.buckets {
		b := s.buckets[i].Load()
		if b == nil {
			continue
		}
		for j := range *b {
			if (*b)[j].Load() != 0 {
				return false
			}
		}
	}
	return true
}

// Reset drops every published bucket and returns the set to its freshly
// constructed state, releasing all bucket memory to the GC.
//
// The caller must guarantee exclusive access: Reset does not synchronize
// with concurrent readers or writers. Buckets can be published in any
// order, so every slot is checked rather than stopping at the first empty
// one.
func (s *AtomicBitSet) Reset() {
	for i := range s.buckets {
		s.buckets[i].Store(nil)
	}
}
