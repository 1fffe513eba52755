// Package bucketdb implements the sparse bucket index: the 512 KiB side
// table that lets a client translate an unknown (address, slot) pair into
// a contiguous index range inside the server's flat physical database in
// O(1), without revealing which bucket it looked up.
//
// The physical layout convention (entries for bucket b occupy
// [cumulative[b], cumulative[b]+counts[b])) mirrors the bucket-keyed
// layout turbo-geth's own PlainStateBucket/CurrentStateBucket convention
// in common/dbutils/bucket.go: a fixed, pre-sorted physical ordering keyed
// by a small integer id, looked up by prefix rather than by full key.
package bucketdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/valyala/gozstd"

	icommon "github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/inspireerr"
)

// NumBuckets is the fixed number of equivalence classes a (address, slot)
// pair can hash into.
const NumBuckets = 262_144 // 2^18

// rawSize is the size in bytes of the uncompressed counts blob.
const rawSize = NumBuckets * 2

// BucketID computes the bucket a (address, slot) pair belongs to: the top
// 18 bits of keccak256(address || slot), per spec.md §4.1.
func BucketID(addr icommon.Address, slot icommon.StorageKey) uint32 {
	h := icommon.Keccak256(addr[:], slot[:])
	id := (uint32(h[0]) << 10) | (uint32(h[1]) << 2) | (uint32(h[2]) >> 6)
	return id & (NumBuckets - 1)
}

// Range describes where a bucket's entries live in the physical database.
type Range struct {
	BucketID   uint32
	StartIndex uint64
	Count      uint64
}

// Index is the full in-memory bucket index: a count per bucket and the
// cumulative prefix sums derived from it.
type Index struct {
	counts     [NumBuckets]uint16
	cumulative [NumBuckets + 1]uint64
}

// New builds an Index from a completed counts vector, computing the
// cumulative array. It cannot fail: every uint16 count is valid here.
// Range checks on ids and counts happen in NewFromCounts.
func New(counts [NumBuckets]uint16) *Index {
	idx := &Index{counts: counts}
	idx.recomputeCumulative()
	return idx
}

// NewFromCounts is a convenience constructor for builders that accumulate
// per-bucket counts into a map first; any id >= NumBuckets is an error,
// and any count overflowing uint16 is rejected (spec.md §3 invariant).
func NewFromCounts(raw map[uint32]uint64) (*Index, error) {
	var counts [NumBuckets]uint16
	for id, n := range raw {
		if id >= NumBuckets {
			return nil, inspireerr.New(inspireerr.Validation, "bucketdb.NewFromCounts",
				fmt.Sprintf("bucket id %d out of range", id))
		}
		if n > math.MaxUint16 {
			return nil, inspireerr.New(inspireerr.Validation, "bucketdb.NewFromCounts",
				fmt.Sprintf("bucket %d count %d exceeds uint16", id, n))
		}
		counts[id] = uint16(n)
	}
	return New(counts), nil
}

func (idx *Index) recomputeCumulative() {
	idx.cumulative[0] = 0
	for i := 0; i < NumBuckets; i++ {
		idx.cumulative[i+1] = idx.cumulative[i] + uint64(idx.counts[i])
	}
}

// TotalEntries returns cumulative[NumBuckets], the total database entry count.
func (idx *Index) TotalEntries() uint64 {
	return idx.cumulative[NumBuckets]
}

// Lookup resolves (addr, slot) to the range of physical indices its
// bucket occupies.
func (idx *Index) Lookup(addr icommon.Address, slot icommon.StorageKey) Range {
	id := BucketID(addr, slot)
	return Range{
		BucketID:   id,
		StartIndex: idx.cumulative[id],
		Count:      uint64(idx.counts[id]),
	}
}

// Count returns the raw count for a bucket id.
func (idx *Index) Count(id uint32) uint16 { return idx.counts[id] }

// Apply writes each (bucket_id, new_count) update absolutely (last one
// wins if duplicated), ignoring ids >= NumBuckets, then recomputes the
// full cumulative array — O(NumBuckets), acceptable once per block
// (spec.md §4.1 "Delta application").
func (idx *Index) Apply(d Delta) {
	for _, u := range d.Updates {
		if u.BucketID >= NumBuckets {
			continue
		}
		idx.counts[u.BucketID] = u.NewCount
	}
	idx.recomputeCumulative()
}

// EncodeRaw serializes counts as NumBuckets little-endian u16 values:
// exactly rawSize bytes, no framing (spec.md §4.1, §6 "/index/raw").
func (idx *Index) EncodeRaw() []byte {
	out := make([]byte, rawSize)
	for i, c := range idx.counts {
		binary.LittleEndian.PutUint16(out[i*2:], c)
	}
	return out
}

// DecodeRaw parses the uncompressed counts blob produced by EncodeRaw.
func DecodeRaw(data []byte) (*Index, error) {
	if len(data) != rawSize {
		return nil, inspireerr.New(inspireerr.Validation, "bucketdb.DecodeRaw",
			fmt.Sprintf("expected %d bytes, got %d", rawSize, len(data)))
	}
	var counts [NumBuckets]uint16
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return New(counts), nil
}

// EncodeCompressed zstd-compresses (level 19) the raw counts blob.
func (idx *Index) EncodeCompressed() []byte {
	return gozstd.CompressLevel(nil, idx.EncodeRaw(), 19)
}

// DecodeCompressed inflates a zstd-compressed counts blob, capping the
// decompressed size at NumBuckets*2 bytes to defend against decompression
// bombs (spec.md §4.1, §7 ResourceExhaustion). Any payload that would
// decompress larger than that cap is rejected outright.
func DecodeCompressed(compressed []byte) (*Index, error) {
	const maxDecompressed = rawSize
	zr := gozstd.NewReader(bytes.NewReader(compressed))
	defer zr.Release()
	// Read at most one byte past the cap, so an oversized payload is
	// detected without inflating it in full.
	decoded, err := io.ReadAll(io.LimitReader(zr, maxDecompressed+1))
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.Validation, "bucketdb.DecodeCompressed", "zstd decompress failed", err)
	}
	if len(decoded) > maxDecompressed {
		return nil, inspireerr.New(inspireerr.ResourceExhaustion, "bucketdb.DecodeCompressed",
			fmt.Sprintf("decompressed size %d exceeds cap %d", len(decoded), maxDecompressed))
	}
	return DecodeRaw(decoded)
}

// CheckLayout verifies the builder's invariant that the physical database
// is laid out so that bucket b's entries occupy exactly
// [cumulative[b], cumulative[b]+counts[b]). order must yield, for each
// physical index i in ascending order, the bucket id assigned to that
// index; construction fails loudly if the ordering disagrees with counts.
func (idx *Index) CheckLayout(order func(physicalIndex uint64) uint32) error {
	var i uint64
	for b := uint32(0); b < NumBuckets; b++ {
		for j := uint64(0); j < uint64(idx.counts[b]); j++ {
			got := order(i)
			if got != b {
				return inspireerr.New(inspireerr.IntegrityViolation, "bucketdb.CheckLayout",
					fmt.Sprintf("physical index %d expected bucket %d, got %d", i, b, got))
			}
			i++
		}
	}
	if i != idx.TotalEntries() {
		return inspireerr.New(inspireerr.IntegrityViolation, "bucketdb.CheckLayout",
			fmt.Sprintf("counts sum to %d but checked %d entries", idx.TotalEntries(), i))
	}
	return nil
}

// Equal reports whether two indexes hold identical counts (used by tests
// and by the range-delta round-trip checks).
func (idx *Index) Equal(other *Index) bool {
	return bytes.Equal(idx.EncodeRaw(), other.EncodeRaw())
}
