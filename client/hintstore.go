package client

import (
	"encoding/json"
	"os"

	"github.com/inspirepir/inspire/inspiremetrics"
	"github.com/inspirepir/inspire/pir"
	"github.com/inspirepir/inspire/pir/hintindex"
)

// StoredHint is a hint together with the subset it was computed over.
type StoredHint struct {
	Subset pir.Subset
	Hint   pir.Hint
}

// HintStore is a client's local hint cache: every hint it holds for a
// given block, plus the inverted index that maps a target database
// index back to the hints covering it (spec.md §4.5).
type HintStore struct {
	BlockNumber uint64
	Hints       []StoredHint
	index       *hintindex.Index
}

// NewHintStore builds an empty store.
func NewHintStore() *HintStore {
	return &HintStore{index: hintindex.New()}
}

// AddHints replaces the store's contents with a freshly downloaded
// hint set rooted at blockNumber, rebuilding the inverted index.
func (s *HintStore) AddHints(hints []StoredHint, blockNumber uint64) {
	s.BlockNumber = blockNumber
	s.Hints = hints
	s.rebuildIndex()
	inspiremetrics.HintStoreBytes.Set(float64(s.SizeBytes()))
}

func (s *HintStore) rebuildIndex() {
	s.index = hintindex.New()
	for id, stored := range s.Hints {
		s.index.Add(uint32(id), stored.Subset.Expand())
	}
}

// FindHintForTarget returns a hint covering target, preferring the
// inverted index and falling back to a linear scan if the index
// somehow missed it (e.g. a store loaded from disk before the index
// rebuild ran).
func (s *HintStore) FindHintForTarget(target uint64) (StoredHint, bool) {
	if ids := s.index.HintIDsFor(target); len(ids) > 0 {
		return s.Hints[ids[0]], true
	}
	for _, h := range s.Hints {
		if h.Subset.Contains(target) {
			return h, true
		}
	}
	return StoredHint{}, false
}

// ApplyDelta folds a set of (index, old, new) entry changes into every
// hint whose subset covers the changed index: new_hint = old_hint ⊕
// old ⊕ new for each one.
func (s *HintStore) ApplyDelta(changes []EntryChange) {
	for _, c := range changes {
		for _, id := range s.index.HintIDsFor(c.Index) {
			pir.UpdateHint(&s.Hints[id].Hint, c.OldValue, c.NewValue)
		}
	}
}

// EntryChange is one database mutation relevant to hint maintenance.
type EntryChange struct {
	Index    uint64
	OldValue pir.Hint
	NewValue pir.Hint
}

// SizeBytes estimates the store's in-memory footprint.
func (s *HintStore) SizeBytes() int {
	const storedHintSize = 32 + 8 + 8 + 32 // seed + size + domain_size + hint
	return len(s.Hints) * storedHintSize
}

type serializedStore struct {
	BlockNumber uint64       `json:"block_number"`
	Hints       []StoredHint `json:"hints"`
}

// Save persists the store as JSON. The inverted index is not
// serialized; Load rebuilds it.
func (s *HintStore) Save(path string) error {
	data, err := json.Marshal(serializedStore{BlockNumber: s.BlockNumber, Hints: s.Hints})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadHintStore reads a store previously written by Save and rebuilds
// its inverted index.
func LoadHintStore(path string) (*HintStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw serializedStore
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	s := &HintStore{BlockNumber: raw.BlockNumber, Hints: raw.Hints}
	s.rebuildIndex()
	return s, nil
}
