package ubt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	icommon "github.com/inspirepir/inspire/common"
)

func TestComputeStorageTreeIndexLowSlot(t *testing.T) {
	// spec.md §8, S1-adjacent worked example: slot 9 is below 64, so it
	// co-locates at subindex 64+9.
	var slot icommon.StorageKey
	slot[31] = 9

	idx := ComputeStorageTreeIndex(slot)
	require.Equal(t, [31]byte{}, idx.StemPos())
	require.Equal(t, byte(73), idx.Subindex())
}

func TestComputeStorageTreeIndexSlot64Overflows(t *testing.T) {
	// spec.md §8: "For slot 64, stem_pos byte 0 = 1, subindex = 64."
	var slot icommon.StorageKey
	slot[31] = 64

	idx := ComputeStorageTreeIndex(slot)
	stemPos := idx.StemPos()
	require.Equal(t, byte(1), stemPos[0])
	for i := 1; i < 31; i++ {
		require.Zero(t, stemPos[i])
	}
	require.Equal(t, byte(64), idx.Subindex())
}

func TestComputeStorageTreeIndexBoundary63IsHeaderSlot(t *testing.T) {
	var slot icommon.StorageKey
	slot[31] = 63

	idx := ComputeStorageTreeIndex(slot)
	require.Equal(t, [31]byte{}, idx.StemPos())
	require.Equal(t, byte(127), idx.Subindex())
}

func TestComputeCodeChunkTreeIndexInStemRun(t *testing.T) {
	idx := ComputeCodeChunkTreeIndex(0)
	require.Equal(t, [31]byte{}, idx.StemPos())
	require.Equal(t, byte(CodeOffset), idx.Subindex())

	idx = ComputeCodeChunkTreeIndex(127)
	require.Equal(t, [31]byte{}, idx.StemPos())
	require.Equal(t, byte(255), idx.Subindex())
}

func TestComputeCodeChunkTreeIndexOverflowsToSuccessorStem(t *testing.T) {
	// chunk 128: pos = 128+128 = 256, stem_pos = 256/256 = 1, subindex = 0.
	idx := ComputeCodeChunkTreeIndex(128)
	stemPos := idx.StemPos()
	require.Equal(t, byte(1), stemPos[30])
	require.Equal(t, byte(0), idx.Subindex())

	// chunk 383: pos = 128+383 = 511, stem_pos = 1, subindex = 255.
	idx = ComputeCodeChunkTreeIndex(383)
	stemPos = idx.StemPos()
	require.Equal(t, byte(1), stemPos[30])
	require.Equal(t, byte(255), idx.Subindex())

	// chunk 384: pos = 128+384 = 512, stem_pos = 2, subindex = 0.
	idx = ComputeCodeChunkTreeIndex(384)
	stemPos = idx.StemPos()
	require.Equal(t, byte(2), stemPos[30])
	require.Equal(t, byte(0), idx.Subindex())
}

func TestStemIsDeterministicAndPositionSensitive(t *testing.T) {
	var addr icommon.Address
	addr[19] = 0x42

	s1 := Stem(addr, [31]byte{})
	s1Again := Stem(addr, [31]byte{})
	require.Equal(t, s1, s1Again)

	var otherPos [31]byte
	otherPos[0] = 1
	s2 := Stem(addr, otherPos)
	require.NotEqual(t, s1, s2)
}

func TestTreeKeysForDifferentLeavesDiffer(t *testing.T) {
	var addr icommon.Address
	addr[19] = 0x42

	basicData := BasicDataTreeKey(addr)

	var slot icommon.StorageKey
	slot[31] = 9
	storage := StorageTreeKey(addr, slot)

	code := CodeChunkTreeKey(addr, 0)

	require.NotEqual(t, basicData, storage)
	require.NotEqual(t, basicData, code)
	require.NotEqual(t, storage, code)
	// Co-located leaves (same stem) only differ by subindex.
	require.Equal(t, basicData[:31], storage[:31])
	require.Equal(t, basicData[:31], code[:31])
}

func TestStemMatchesDirectBlake3OfPaddedAddressAndStemPos(t *testing.T) {
	// Stem recomputed directly: Blake3_31 over the 32-byte left-padded
	// address ...01 followed by an all-zero 31-byte stem_pos.
	var addr icommon.Address
	addr[19] = 1

	stem := Stem(addr, [31]byte{})

	var expectedInput [63]byte
	expectedInput[31] = 1 // address byte, left-padded into bytes[12:32]
	expected := icommon.Blake3_31(expectedInput[:])

	require.Equal(t, expected, stem)
}

func TestStemOffsetTableLookup(t *testing.T) {
	stems := [][31]byte{{9}, {1}, {5}}
	offsets := []uint64{900, 100, 500}
	table := NewStemOffsetTable(stems, offsets)

	require.Equal(t, 3, table.Len())
	off, err := table.Lookup([31]byte{1})
	require.NoError(t, err)
	require.EqualValues(t, 100, off)

	_, err = table.Lookup([31]byte{7})
	require.True(t, errors.Is(err, ErrStemNotPresent))
}

func TestCachedStemOffsetTableHitsAndMisses(t *testing.T) {
	stems := [][31]byte{{9}, {1}, {5}}
	offsets := []uint64{900, 100, 500}
	table := NewStemOffsetTable(stems, offsets)

	cached, err := NewCachedStemOffsetTable(table, 2)
	require.NoError(t, err)

	off, err := cached.Lookup([31]byte{5})
	require.NoError(t, err)
	require.EqualValues(t, 500, off)

	// second lookup should hit the cache and return the same result
	off, err = cached.Lookup([31]byte{5})
	require.NoError(t, err)
	require.EqualValues(t, 500, off)

	_, err = cached.Lookup([31]byte{7})
	require.True(t, errors.Is(err, ErrStemNotPresent))
	_, err = cached.Lookup([31]byte{7})
	require.True(t, errors.Is(err, ErrStemNotPresent))
}
