package rangedelta

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/inspireerr"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Version: Version, CurrentBlock: 9001, NumRanges: uint32(len(Tiers))}
	back, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, h, back)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	h := Header{Version: Version}
	buf := h.Encode()
	buf[0] = 'X'
	_, err := DecodeHeader(buf)
	require.Error(t, err)
	require.Equal(t, inspireerr.IntegrityViolation, inspireerr.KindOf(err))
}

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{BlocksCovered: 10, Offset: 128, Size: 64, EntryCount: 3}
	back, err := DecodeEntry(e.Encode())
	require.NoError(t, err)
	require.Equal(t, e, back)
}

func TestSelectTierWorkedExample(t *testing.T) {
	// S2 from spec.md §8 uses a 4-tier configuration.
	tiers := []uint32{1, 10, 100, 1000}
	require.Equal(t, -1, selectTierFrom(tiers, 0))
	require.Equal(t, 0, selectTierFrom(tiers, 1))
	require.Equal(t, 1, selectTierFrom(tiers, 5))
	require.Equal(t, 2, selectTierFrom(tiers, 50))
	require.Equal(t, 3, selectTierFrom(tiers, 500))
	require.Equal(t, -1, selectTierFrom(tiers, 5000))
}

func TestSelectTierFallsBackBeyondLargestTier(t *testing.T) {
	require.Equal(t, -1, SelectTier(10001))
	require.Equal(t, len(Tiers)-1, SelectTier(10000))
}

func TestWriterBuildRoundTripsThroughArchive(t *testing.T) {
	w := NewWriter()
	w.Push(bucketdb.Delta{BlockNumber: 1, Updates: []bucketdb.Update{{BucketID: 0, NewCount: 1}}})
	w.Push(bucketdb.Delta{BlockNumber: 2, Updates: []bucketdb.Update{{BucketID: 0, NewCount: 2}, {BucketID: 1, NewCount: 5}}})

	archive := w.Build(2)
	encoded, err := archive.Encode()
	require.NoError(t, err)

	decoded, err := DecodeArchive(encoded)
	require.NoError(t, err)
	require.Equal(t, archive.Deltas, decoded.Deltas)
	require.Equal(t, uint64(2), decoded.Header.CurrentBlock)
}

func TestWriterSizeBytesGrowsWithPushedUpdates(t *testing.T) {
	w := NewWriter()
	require.Zero(t, w.SizeBytes())

	w.Push(bucketdb.Delta{BlockNumber: 1, Updates: []bucketdb.Update{{BucketID: 0, NewCount: 1}}})
	after := w.SizeBytes()
	require.NotZero(t, after)

	w.Push(bucketdb.Delta{BlockNumber: 2, Updates: []bucketdb.Update{{BucketID: 0, NewCount: 2}, {BucketID: 1, NewCount: 5}}})
	require.Greater(t, w.SizeBytes(), after)
}

func TestDecodeArchiveRejectsVersionMismatch(t *testing.T) {
	w := NewWriter()
	archive := w.Build(0)
	encoded, err := archive.Encode()
	require.NoError(t, err)
	encoded[4] = 99 // corrupt version byte (LE u32 at offset 4)

	_, err = DecodeArchive(encoded)
	require.Error(t, err)
	require.Equal(t, inspireerr.ProtocolVersionMismatch, inspireerr.KindOf(err))
}

func TestInfoBytesIsHeaderPlusDirectoryOnly(t *testing.T) {
	w := NewWriter()
	archive := w.Build(5)
	info := archive.InfoBytes()
	require.Len(t, info, HeaderSize+len(Tiers)*EntrySize)
}
