package pir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func entryOf(b byte) Hint {
	var h Hint
	for i := range h {
		h[i] = b
	}
	return h
}

func TestComputeHintXorsNamedEntries(t *testing.T) {
	entries := map[uint64]Hint{0: entryOf(1), 1: entryOf(2), 2: entryOf(3)}
	hint := ComputeHint([]uint64{0, 1, 2}, func(idx uint64) Hint { return entries[idx] })
	require.Equal(t, entryOf(1^2^3), hint)
}

func TestUpdateHintAlgebra(t *testing.T) {
	hint := entryOf(0x10)
	UpdateHint(&hint, entryOf(0x01), entryOf(0x02))
	require.Equal(t, entryOf(0x10^0x01^0x02), hint)
}

func TestRecoverEntryWithPuncturedResponse(t *testing.T) {
	entries := map[uint64]Hint{10: entryOf(5), 20: entryOf(6), 30: entryOf(7)}
	get := func(idx uint64) Hint { return entries[idx] }

	full := ComputeHint([]uint64{10, 20, 30}, get) // hint stored at setup time
	punctured := ComputeHint([]uint64{10, 30}, get) // server's response, target 20 excluded

	recovered := RecoverEntry(punctured, full)
	require.Equal(t, entries[20], recovered)
}

func TestQueryExpandPuncturesExcludedIndex(t *testing.T) {
	subset := NewSubset(Seed{3}, 50, 1_000_000)
	target := subset.Expand()[10]

	q := NewQuery(subset, target)
	expanded := q.Expand()

	require.Len(t, expanded, len(subset.Expand())-1)
	for _, idx := range expanded {
		require.NotEqual(t, target, idx)
	}
}

func TestQueryExpandWithoutExclusionMatchesSubset(t *testing.T) {
	subset := NewSubset(Seed{3}, 50, 1_000_000)
	q := Query{Seed: subset.Seed, SubsetSize: uint64(subset.Size), DomainSize: subset.DomainSize, Exclude: NoExclusion}
	require.Equal(t, subset.Expand(), q.Expand())
}
