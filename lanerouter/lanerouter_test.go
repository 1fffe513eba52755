package lanerouter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspirepir/inspire/common"
)

func addr(b byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func slot(b byte) common.StorageKey {
	var s common.StorageKey
	for i := range s {
		s[i] = b
	}
	return s
}

func testManifest() *HotLaneManifest {
	m := NewHotLaneManifest(1000)
	m.AddContract(addr(0x11), "USDC", 1000, "token")
	m.AddContract(addr(0x22), "WETH", 500, "token")
	return m
}

func TestRouting(t *testing.T) {
	r := New(testManifest())
	require.Equal(t, Hot, r.Route(addr(0x11)))
	require.Equal(t, Hot, r.Route(addr(0x22)))
	require.Equal(t, Cold, r.Route(addr(0x33)))
}

func TestHotIndexWithSlot(t *testing.T) {
	r := New(testManifest())
	s := slot(0x42)

	idx1, ok := r.GetHotIndex(addr(0x11), s)
	require.True(t, ok)
	expectedOffset, ok := slotToOffset(s, 1000)
	require.True(t, ok)
	require.Equal(t, expectedOffset, idx1)
	require.Less(t, idx1, uint64(1000))

	idx2, ok := r.GetHotIndex(addr(0x22), s)
	require.True(t, ok)
	expectedOffset2, ok := slotToOffset(s, 500)
	require.True(t, ok)
	require.Equal(t, uint64(1000)+expectedOffset2, idx2)
	require.True(t, idx2 >= 1000 && idx2 < 1500)

	_, ok = r.GetHotIndex(addr(0x33), s)
	require.False(t, ok)
}

func TestHotIndexDifferentSlots(t *testing.T) {
	r := New(testManifest())
	c := addr(0x11)

	idx1, ok := r.GetHotIndex(c, slot(0x01))
	require.True(t, ok)
	idx2, ok := r.GetHotIndex(c, slot(0x02))
	require.True(t, ok)

	require.NotEqual(t, idx1, idx2)
	require.Less(t, idx1, uint64(1000))
	require.Less(t, idx2, uint64(1000))
}

func TestColdIndex(t *testing.T) {
	r := WithColdEntries(testManifest(), 2_700_000_000)
	c, s := addr(0x33), slot(0x44)

	idx, ok := r.GetColdIndex(c, s)
	require.True(t, ok)
	require.Less(t, idx, uint64(2_700_000_000))

	idx2, ok := r.GetColdIndex(c, s)
	require.True(t, ok)
	require.Equal(t, idx, idx2)
}

func TestColdIndexUninitialized(t *testing.T) {
	r := New(testManifest())
	_, ok := r.GetColdIndex(addr(0x33), slot(0x44))
	require.False(t, ok, "zero total_entries means the cold lane is absent, not an error")
}

func TestColdIndexDifferentInputs(t *testing.T) {
	r := WithColdEntries(testManifest(), 1_000_000_000)

	idx1, _ := r.GetColdIndex(addr(0x11), slot(0x22))
	idx2, _ := r.GetColdIndex(addr(0x33), slot(0x22))
	idx3, _ := r.GetColdIndex(addr(0x11), slot(0x44))

	require.NotEqual(t, idx1, idx2)
	require.NotEqual(t, idx1, idx3)
}

func TestSlotToOffsetDeterministic(t *testing.T) {
	s := slot(0x42)
	o1, _ := slotToOffset(s, 1000)
	o2, _ := slotToOffset(s, 1000)
	require.Equal(t, o1, o2)
}

func TestSlotToOffsetBounded(t *testing.T) {
	s := slot(0xff)
	for _, numSlots := range []uint64{1, 100, 1000, 1_000_000} {
		o, ok := slotToOffset(s, numSlots)
		require.True(t, ok)
		require.Less(t, o, numSlots)
	}
}

func TestSlotToOffsetZeroReturnsFalse(t *testing.T) {
	_, ok := slotToOffset(slot(0x00), 0)
	require.False(t, ok)
}

func TestDifferentSlotsDifferentOffsets(t *testing.T) {
	o1, _ := slotToOffset(slot(0x01), 1_000_000)
	o2, _ := slotToOffset(slot(0x02), 1_000_000)
	require.NotEqual(t, o1, o2)
}

func TestIsHot(t *testing.T) {
	r := New(testManifest())
	require.True(t, r.IsHot(addr(0x11)))
	require.False(t, r.IsHot(addr(0x99)))
	require.Equal(t, 2, r.HotContractCount())
}

func TestResolveRoutesAndIndexes(t *testing.T) {
	r := WithColdEntries(testManifest(), 1_000_000)

	hotQ, ok := r.Resolve(QueryTarget{Contract: addr(0x11), Slot: slot(0x01)})
	require.True(t, ok)
	require.Equal(t, Hot, hotQ.Lane)
	require.Less(t, hotQ.Index, uint64(1000))

	coldQ, ok := r.Resolve(QueryTarget{Contract: addr(0x99), Slot: slot(0x01)})
	require.True(t, ok)
	require.Equal(t, Cold, coldQ.Lane)
	require.Less(t, coldQ.Index, uint64(1_000_000))
}

func TestManifestJSONRoundTrip(t *testing.T) {
	original := testManifest()

	data, err := EncodeManifestJSON(original)
	require.NoError(t, err)

	decoded, err := DecodeManifestJSON(data)
	require.NoError(t, err)

	require.Equal(t, original.Contracts(), decoded.Contracts())
}

func TestDecodeManifestJSONRejectsGarbage(t *testing.T) {
	_, err := DecodeManifestJSON([]byte("not json"))
	require.Error(t, err)
}

func TestDetectColdCollisionsAcceptsDistinctTargets(t *testing.T) {
	targets := []QueryTarget{
		{Contract: addr(0x11), Slot: slot(0x01)},
		{Contract: addr(0x22), Slot: slot(0x02)},
		{Contract: addr(0x33), Slot: slot(0x03)},
	}
	require.NoError(t, DetectColdCollisions(targets, 1_000_000))
}

func TestDetectColdCollisionsRejectsDuplicateIndex(t *testing.T) {
	c, s := addr(0x11), slot(0x01)
	idx, ok := ColdIndex(c, s, 1)
	require.True(t, ok)
	require.Equal(t, uint64(0), idx)

	// With total_entries == 1 every target collides on index 0.
	targets := []QueryTarget{
		{Contract: addr(0x11), Slot: slot(0x01)},
		{Contract: addr(0x22), Slot: slot(0x02)},
	}
	require.Error(t, DetectColdCollisions(targets, 1))
}

func TestDetectColdCollisionsRejectsZeroTotalEntries(t *testing.T) {
	targets := []QueryTarget{{Contract: addr(0x11), Slot: slot(0x01)}}
	require.Error(t, DetectColdCollisions(targets, 0))
}
