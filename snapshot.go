package sparsebit

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the compression applied to snapshot payloads.
// Sparse sets serialize mostly zero words, so compression is the natural
// choice for anything written to cold storage.
type CompressionType uint8

const (
	// CompressionNone stores the payload verbatim.
	CompressionNone CompressionType = 0
	// CompressionLZ4 applies LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD applies ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

// Snapshot format, little-endian:
//
//	[version u8][compression u8][bucketMask u64][payloadLen u64][storedLen u64]
//	[stored bytes]
//
// bucketMask has bit i set if bucket i is present. The payload is the
// concatenated words of the present buckets in ascending bucket order;
// payloadLen is its size before compression, storedLen after. When a
// payload is incompressible the writer falls back to CompressionNone, so
// storedLen < payloadLen always holds for compressed snapshots.
const (
	snapshotVersion    = 1
	snapshotHeaderSize = 1 + 1 + 8 + 8 + 8
)

// maxBucket is the highest bucket a uint64 value can land in: word indexes
// top out at MaxUint64/wordBits = 2^58 - 1, which maps to bucket 58. The
// slots above it exist only to pad the doubling series out to one slot per
// possible word-width shift.
const maxBucket = 58

// ZSTD encoder/decoder pools, shared across snapshots.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Snapshot writes the set to w and returns the number of bytes written.
//
// Snapshot is safe to call concurrently with Add, Remove and Contains: each
// word is read atomically, so the result is consistent per word rather than
// across the whole set, the same contract as Count. Buckets published after
// the snapshot begins may be missed.
func (s *AtomicBitSet) Snapshot(w io.Writer, compression CompressionType) (int64, error) {
	var loaded [bucketCount][]atomic.Uint64
	var mask uint64
	for i := range s.buckets {
		if b := s.buckets[i].Load(); b != nil {
			loaded[i] = *b
			mask |= 1 << i
		}
	}

	var total uint64
	for i := range loaded {
		total += uint64(len(loaded[i]))
	}
	payload := make([]byte, 0, total*8)
	var word [8]byte
	for i := range loaded {
		for j := range loaded[i] {
			binary.LittleEndian.PutUint64(word[:], loaded[i][j].Load())
			payload = append(payload, word[:]...)
		}
	}

	stored, effective, err := compressPayload(payload, compression)
	if err != nil {
		return 0, err
	}

	var hdr [snapshotHeaderSize]byte
	hdr[0] = snapshotVersion
	hdr[1] = byte(effective)
	binary.LittleEndian.PutUint64(hdr[2:], mask)
	binary.LittleEndian.PutUint64(hdr[10:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(hdr[18:], uint64(len(stored)))

	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(stored)
	written += int64(n)
	return written, err
}

// Restore replaces the set's contents with a snapshot read from r and
// returns the number of bytes consumed.
//
// The caller must guarantee exclusive access, the same precondition as
// Reset: Restore swaps bucket slots without synchronizing against
// concurrent readers or writers. Snapshot data is trusted input; a bucket
// mask declaring huge buckets allocates them.
func (s *AtomicBitSet) Restore(r io.Reader) (int64, error) {
	var hdr [snapshotHeaderSize]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: short header: %w", ErrInvalidSnapshot, err)
	}
	if hdr[0] != snapshotVersion {
		return total, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, hdr[0])
	}
	compression := CompressionType(hdr[1])
	mask := binary.LittleEndian.Uint64(hdr[2:])
	payloadLen := binary.LittleEndian.Uint64(hdr[10:])
	storedLen := binary.LittleEndian.Uint64(hdr[18:])

	if mask>>(maxBucket+1) != 0 {
		return total, fmt.Errorf("%w: bucket mask %#x declares unreachable buckets", ErrInvalidSnapshot, mask)
	}
	var want uint64
	for i := 0; i <= maxBucket; i++ {
		if mask&(1<<i) != 0 {
			want += 8 << i
		}
	}
	if payloadLen != want {
		return total, fmt.Errorf("%w: payload length %d does not match bucket mask", ErrInvalidSnapshot, payloadLen)
	}
	if compression == CompressionNone && storedLen != payloadLen {
		return total, fmt.Errorf("%w: stored length %d for uncompressed payload of %d", ErrInvalidSnapshot, storedLen, payloadLen)
	}
	if compression != CompressionNone && storedLen >= payloadLen && payloadLen > 0 {
		return total, fmt.Errorf("%w: compressed payload larger than raw payload", ErrInvalidSnapshot)
	}

	stored := make([]byte, storedLen)
	n, err = io.ReadFull(r, stored)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: short payload: %w", ErrInvalidSnapshot, err)
	}

	payload, err := decompressPayload(stored, compression, payloadLen)
	if err != nil {
		return total, err
	}

	var off int
	for i := range s.buckets {
		if mask&(1<<i) == 0 {
			s.buckets[i].Store(nil)
			continue
		}
		words := make([]atomic.Uint64, uint64(1)<<i)
		for j := range words {
			words[j].Store(binary.LittleEndian.Uint64(payload[off:]))
			off += 8
		}
		s.buckets[i].Store(&words)
	}
	return total, nil
}

// compressPayload compresses payload with the requested algorithm. When
// compression does not shrink the payload the raw bytes are stored instead
// and the returned effective type is CompressionNone.
func compressPayload(payload []byte, compression CompressionType) ([]byte, CompressionType, error) {
	if compression == CompressionNone || len(payload) == 0 {
		return payload, CompressionNone, nil
	}

	switch compression {
	case CompressionLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, compressed, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 || n >= len(payload) {
			return payload, CompressionNone, nil
		}
		return compressed[:n], CompressionLZ4, nil

	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed := enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
		if len(compressed) >= len(payload) {
			return payload, CompressionNone, nil
		}
		return compressed, CompressionZSTD, nil

	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}
}

// decompressPayload reverses compressPayload. payloadLen is the expected
// decompressed size from the snapshot header.
func decompressPayload(stored []byte, compression CompressionType, payloadLen uint64) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return stored, nil

	case CompressionLZ4:
		payload := make([]byte, payloadLen)
		n, err := lz4.UncompressBlock(stored, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if uint64(n) != payloadLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidSnapshot)
		}
		return payload, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		payload, err := dec.DecodeAll(stored, make([]byte, 0, payloadLen))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if uint64(len(payload)) != payloadLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidSnapshot)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}
}

// SnapshotSize returns the number of payload bytes a raw (uncompressed)
// snapshot of the currently published buckets would occupy, excluding the
// fixed header. Useful for sizing buffers up front.
func (s *AtomicBitSet) SnapshotSize() uint64 {
	var total uint64
	for i := range s.buckets {
		if s.buckets[i].Load() != nil {
			total += 8 << i
		}
	}
	return total
}
