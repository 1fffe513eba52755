package bucketdb

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/inspirepir/inspire/inspireerr"
)

// deltaHeaderSize is block_number(8) || update_count(4).
const deltaHeaderSize = 12

// updateSize is bucket_id(4) || new_count(2).
const updateSize = 6

// Update is one (bucket_id, new_count) pair inside a Delta.
type Update struct {
	BucketID uint32
	NewCount uint16
}

// Delta is the per-block change record to bucket counts. Updates may
// arrive in any order on the wire; consumers apply them absolutely, not
// additively (spec.md §3).
type Delta struct {
	BlockNumber uint64
	Updates     []Update
}

// Encode serializes a Delta to its wire format: header then update_count
// repetitions of bucket_id(4 LE) || new_count(2 LE) (spec.md §4.1, §6).
func (d Delta) Encode() []byte {
	out := make([]byte, deltaHeaderSize+len(d.Updates)*updateSize)
	binary.LittleEndian.PutUint64(out[0:8], d.BlockNumber)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(d.Updates)))
	off := deltaHeaderSize
	for _, u := range d.Updates {
		binary.LittleEndian.PutUint32(out[off:], u.BucketID)
		binary.LittleEndian.PutUint16(out[off+4:], u.NewCount)
		off += updateSize
	}
	return out
}

// DecodeDelta parses a wire-format Delta, rejecting hostile input per
// spec.md §4.1's decoder rules:
//
//   - data shorter than the 12-byte header is HeaderTooShort (Validation).
//   - update_count > NumBuckets is TooManyUpdates (ResourceExhaustion):
//     this hard cap is what prevents a 32-bit update_count from
//     overflowing the preallocation below.
//   - the expected payload length is computed with a checked
//     multiplication (update_count, now bounded, times the fixed
//     updateSize, both small uints — no overflow risk once capped).
//   - a truncated payload is rejected as Validation.
func DecodeDelta(data []byte) (Delta, error) {
	const op = "bucketdb.DecodeDelta"
	if len(data) < deltaHeaderSize {
		return Delta{}, inspireerr.New(inspireerr.Validation, op, "header too short")
	}
	blockNumber := binary.LittleEndian.Uint64(data[0:8])
	updateCount := binary.LittleEndian.Uint32(data[8:12])
	if updateCount > NumBuckets {
		return Delta{}, inspireerr.New(inspireerr.ResourceExhaustion, op,
			fmt.Sprintf("update_count %d exceeds NumBuckets", updateCount))
	}
	expected := deltaHeaderSize + uint64(updateCount)*updateSize
	if uint64(len(data)) < expected {
		return Delta{}, inspireerr.New(inspireerr.Validation, op,
			fmt.Sprintf("truncated: need %d bytes, have %d", expected, len(data)))
	}

	updates := make([]Update, updateCount)
	off := deltaHeaderSize
	for i := range updates {
		updates[i] = Update{
			BucketID: binary.LittleEndian.Uint32(data[off:]),
			NewCount: binary.LittleEndian.Uint16(data[off+4:]),
		}
		off += updateSize
	}
	return Delta{BlockNumber: blockNumber, Updates: updates}, nil
}

// MergeDeltas merges a sequence of per-block deltas into a single delta
// using latest-wins semantics per bucket id: the output's merged block
// number is the maximum block number seen, and the output is sorted by
// bucket id ascending (spec.md §4.2). merge_deltas is the only place
// deltas from different blocks interact; elsewhere a Delta is a pure
// overwrite against the bucket index.
func MergeDeltas(deltas []Delta) Delta {
	latest := map[uint32]uint16{}
	var maxBlock uint64
	for _, d := range deltas {
		if d.BlockNumber > maxBlock {
			maxBlock = d.BlockNumber
		}
		for _, u := range d.Updates {
			latest[u.BucketID] = u.NewCount
		}
	}
	ids := make([]uint32, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := Delta{BlockNumber: maxBlock, Updates: make([]Update, len(ids))}
	for i, id := range ids {
		out.Updates[i] = Update{BucketID: id, NewCount: latest[id]}
	}
	return out
}
