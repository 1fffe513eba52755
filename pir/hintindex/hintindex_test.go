package hintindex

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"
)

func TestAddAndHintIDsFor(t *testing.T) {
	idx := New()
	idx.Add(1, []uint64{10, 20, 30})
	idx.Add(2, []uint64{20, 40})

	require.Equal(t, []uint32{1}, idx.HintIDsFor(10))
	require.Equal(t, []uint32{1, 2}, idx.HintIDsFor(20))
	require.Nil(t, idx.HintIDsFor(99))
	require.Equal(t, 4, idx.Len())
}

func TestMergeOrsExistingBitmap(t *testing.T) {
	idx := New()
	idx.Add(1, []uint64{5})

	delta := roaring.New()
	delta.Add(2)
	delta.Add(3)
	idx.Merge(5, delta)

	require.Equal(t, []uint32{1, 2, 3}, idx.HintIDsFor(5))
}

func TestMergeOntoEmptyTarget(t *testing.T) {
	idx := New()
	delta := roaring.New()
	delta.Add(9)
	idx.Merge(77, delta)

	require.Equal(t, []uint32{9}, idx.HintIDsFor(77))
}

func TestRemoveDropsHintFromEveryTarget(t *testing.T) {
	idx := New()
	idx.Add(1, []uint64{1, 2, 3})
	idx.Remove(1, []uint64{1, 2, 3})

	require.Nil(t, idx.HintIDsFor(1))
	require.Equal(t, 0, idx.Len())
}
