// Package hintindex is the inverted index from a database target index
// to the hint ids whose subset covers it, letting a client answer
// "which of my hints can serve target t" without a linear scan over
// every stored hint (spec.md §4.4).
//
// It adapts turbo-geth's ethdb/bitmapdb sharded-roaring-bitmap idiom:
// instead of one bitmap per storage key sharded across LMDB pages, this
// keeps one compressed roaring.Bitmap per target index in memory,
// merged the same way AppendMergeByOr folds an incoming delta into the
// existing bitmap.
package hintindex

import (
	"github.com/RoaringBitmap/roaring"
)

// Index maps a target database index to the set of hint ids whose
// expanded subset contains it.
type Index struct {
	byTarget map[uint64]*roaring.Bitmap
}

// New builds an empty Index.
func New() *Index {
	return &Index{byTarget: make(map[uint64]*roaring.Bitmap)}
}

// Add records that hintID's subset covers every index in indices.
func (idx *Index) Add(hintID uint32, indices []uint64) {
	for _, target := range indices {
		bm, ok := idx.byTarget[target]
		if !ok {
			bm = roaring.New()
			idx.byTarget[target] = bm
		}
		bm.Add(hintID)
	}
}

// Merge ORs an externally-built delta bitmap into the existing set for
// target, the same merge-by-or idiom ethdb/bitmapdb uses for on-disk
// shards (AppendMergeByOr), applied here to an in-memory entry.
func (idx *Index) Merge(target uint64, delta *roaring.Bitmap) {
	existing, ok := idx.byTarget[target]
	if !ok {
		idx.byTarget[target] = delta.Clone()
		return
	}
	idx.byTarget[target] = roaring.Or(existing, delta)
}

// HintIDsFor returns the sorted hint ids covering target, or nil if none do.
func (idx *Index) HintIDsFor(target uint64) []uint32 {
	bm, ok := idx.byTarget[target]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

// Remove drops hintID from every target it was recorded against.
func (idx *Index) Remove(hintID uint32, indices []uint64) {
	for _, target := range indices {
		if bm, ok := idx.byTarget[target]; ok {
			bm.Remove(hintID)
			if bm.IsEmpty() {
				delete(idx.byTarget, target)
			}
		}
	}
}

// Len reports how many distinct target indices have at least one
// covering hint.
func (idx *Index) Len() int { return len(idx.byTarget) }
