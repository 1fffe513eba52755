package ubt

import (
	"bytes"
	"sort"

	lru "github.com/hashicorp/golang-lru"
)

// StemOffsetTable maps each stem present in the database to the byte
// offset of its first leaf, letting a lookup resolve a tree key to a
// physical record without walking a trie (spec.md §4.3, "the UBT layer
// never materializes internal trie nodes; it is a keying scheme over a
// flat sorted file"). Entries must be sorted by Stem ascending; callers
// build a table once, at index-generation time.
type StemOffsetTable struct {
	stems   [][31]byte
	offsets []uint64
}

// NewStemOffsetTable builds a table from parallel stem/offset slices,
// sorting them into Stem order if needed.
func NewStemOffsetTable(stems [][31]byte, offsets []uint64) *StemOffsetTable {
	idx := make([]int, len(stems))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(stems[idx[i]][:], stems[idx[j]][:]) < 0
	})

	t := &StemOffsetTable{
		stems:   make([][31]byte, len(stems)),
		offsets: make([]uint64, len(offsets)),
	}
	for i, src := range idx {
		t.stems[i] = stems[src]
		t.offsets[i] = offsets[src]
	}
	return t
}

// Lookup finds the database offset of stem via binary search.
func (t *StemOffsetTable) Lookup(stem [31]byte) (uint64, error) {
	n := len(t.stems)
	i := sort.Search(n, func(i int) bool {
		return bytes.Compare(t.stems[i][:], stem[:]) >= 0
	})
	if i == n || t.stems[i] != stem {
		return 0, ErrStemNotPresent
	}
	return t.offsets[i], nil
}

// Len reports how many stems the table indexes.
func (t *StemOffsetTable) Len() int { return len(t.stems) }

// CachedStemOffsetTable wraps a StemOffsetTable with an LRU cache over
// recent lookups, for the resolver path that re-resolves the same hot
// stems (e.g. a popular token's balance slots) across many successive
// queries instead of re-running a binary search every time.
type CachedStemOffsetTable struct {
	table *StemOffsetTable
	cache *lru.Cache
}

// NewCachedStemOffsetTable wraps table with an LRU cache sized for
// cacheSize recent stems.
func NewCachedStemOffsetTable(table *StemOffsetTable, cacheSize int) (*CachedStemOffsetTable, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &CachedStemOffsetTable{table: table, cache: cache}, nil
}

// Lookup resolves stem via the cache, falling back to the underlying
// table's binary search on a miss.
func (c *CachedStemOffsetTable) Lookup(stem [31]byte) (uint64, error) {
	if v, ok := c.cache.Get(stem); ok {
		if v == nil {
			return 0, ErrStemNotPresent
		}
		return v.(uint64), nil
	}

	offset, err := c.table.Lookup(stem)
	if err != nil {
		c.cache.Add(stem, nil)
		return 0, err
	}
	c.cache.Add(stem, offset)
	return offset, nil
}
