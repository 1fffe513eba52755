package pir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandSeedDeterministic(t *testing.T) {
	s := NewSubset(Seed{42}, 100, 1_000_000)
	require.Equal(t, s.Expand(), s.Expand())
}

func TestExpandSeedDiffersAcrossSeeds(t *testing.T) {
	s1 := NewSubset(Seed{0}, 100, 1_000_000)
	s2 := NewSubset(Seed{1}, 100, 1_000_000)
	require.NotEqual(t, s1.Expand(), s2.Expand())
}

func TestExpandSeedProducesExactSizeSortedNoDuplicates(t *testing.T) {
	s := NewSubset(Seed{7}, 1000, 1_000_000)
	indices := s.Expand()
	require.Len(t, indices, 1000)

	seen := make(map[uint64]struct{}, len(indices))
	for i, idx := range indices {
		if i > 0 {
			require.Less(t, indices[i-1], idx)
		}
		_, dup := seen[idx]
		require.False(t, dup)
		seen[idx] = struct{}{}
		require.Less(t, idx, uint64(1_000_000))
	}
}

func TestSubsetContains(t *testing.T) {
	s := NewSubset(Seed{9}, 100, 1_000_000)
	target := s.Expand()[0]
	require.True(t, s.Contains(target))
}
