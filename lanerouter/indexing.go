package lanerouter

import (
	"fmt"

	"github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/inspireerr"
)

const (
	hashSlotSeed         = 0x517cc1b727220a95
	hashContractSlotSeed = 0x9e3779b97f4a7c15

	addressMixRotate = 17
	addressMixShift  = 11
	addressMixMul    = 0x517cc1b727220a95

	slotMixRotate = 13
	slotMixShift  = 7
	slotMixMul    = 0x9e3779b97f4a7c15
)

// hashSlot folds a storage slot key into a 64-bit hash used by the hot
// lane to scatter a contract's sparse slot usage across its assigned
// index range.
func hashSlot(slot common.StorageKey) uint64 {
	h := common.MixChunks(hashSlotSeed, slot[:], slotMixRotate, slotMixShift, slotMixMul)
	return common.Avalanche64(h)
}

// hashContractSlot folds a (contract, slot) pair into a single 64-bit
// hash used by the cold lane to map any address/slot combination into
// its shared index space.
func hashContractSlot(contract common.Address, slot common.StorageKey) uint64 {
	h := uint64(hashContractSlotSeed)
	h = common.MixChunks(h, contract[:], addressMixRotate, addressMixShift, addressMixMul)
	h = common.MixChunks(h, slot[:], slotMixRotate, slotMixShift, slotMixMul)
	return common.Avalanche64(h)
}

// slotToOffset maps slot to an offset in [0, numSlots). Returns false
// if numSlots is zero (an invalid, unconfigured contract).
func slotToOffset(slot common.StorageKey, numSlots uint64) (uint64, bool) {
	if numSlots == 0 {
		return 0, false
	}
	return hashSlot(slot) % numSlots, true
}

// hotIndex computes the global hot lane index for a (contract, slot)
// pair already resolved to its manifest entry's startIndex/numSlots.
func hotIndex(startIndex uint64, slot common.StorageKey, numSlots uint64) (uint64, bool) {
	offset, ok := slotToOffset(slot, numSlots)
	if !ok {
		return 0, false
	}
	return startIndex + offset, true
}

// coldIndex computes the global cold lane index for a (contract, slot)
// pair. Returns false if totalEntries is zero — the cold lane hasn't
// been sized yet, not an error condition (spec.md Open Question (c)).
func coldIndex(contract common.Address, slot common.StorageKey, totalEntries uint64) (uint64, bool) {
	if totalEntries == 0 {
		return 0, false
	}
	return hashContractSlot(contract, slot) % totalEntries, true
}

// ColdIndex is the exported form of coldIndex, for build steps that
// need to place cold-lane entries before a LaneRouter exists.
func ColdIndex(contract common.Address, slot common.StorageKey, totalEntries uint64) (uint64, bool) {
	return coldIndex(contract, slot, totalEntries)
}

// DetectColdCollisions computes coldIndex for every target and fails if
// two distinct (contract, slot) pairs land on the same physical index.
// cold_index is probabilistic (spec.md §4.7): builders must run this
// over the full cold-lane entry set at setup time, the same way
// bucketdb.NewFromCounts rejects a bucket count that can't fit a
// uint16 — a collision here means two logical entries would silently
// share one physical slot.
func DetectColdCollisions(targets []QueryTarget, totalEntries uint64) error {
	const op = "lanerouter.DetectColdCollisions"
	seen := make(map[uint64]QueryTarget, len(targets))
	for _, t := range targets {
		idx, ok := coldIndex(t.Contract, t.Slot, totalEntries)
		if !ok {
			return inspireerr.New(inspireerr.Validation, op, "total_entries is zero")
		}
		if prior, exists := seen[idx]; exists {
			return inspireerr.New(inspireerr.IntegrityViolation, op,
				fmt.Sprintf("index %d: contract %x slot %x collides with contract %x slot %x",
					idx, t.Contract, t.Slot, prior.Contract, prior.Slot))
		}
		seen[idx] = t
	}
	return nil
}
