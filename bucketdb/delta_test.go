package bucketdb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspirepir/inspire/inspireerr"
)

func TestDeltaRoundTrip(t *testing.T) {
	d := Delta{BlockNumber: 12345, Updates: []Update{
		{BucketID: 1, NewCount: 2},
		{BucketID: 100, NewCount: 65535},
	}}
	back, err := DecodeDelta(d.Encode())
	require.NoError(t, err)
	require.Equal(t, d, back)
}

func TestDecodeDeltaHeaderTooShort(t *testing.T) {
	_, err := DecodeDelta(make([]byte, 11))
	require.Error(t, err)
	require.Equal(t, inspireerr.Validation, inspireerr.KindOf(err))
}

func TestDecodeDeltaTooManyUpdatesMax(t *testing.T) {
	// update_count = u32::MAX must return TooManyUpdates, not overflow.
	buf := make([]byte, deltaHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], 0xFFFFFFFF)
	_, err := DecodeDelta(buf)
	require.Error(t, err)
	require.Equal(t, inspireerr.ResourceExhaustion, inspireerr.KindOf(err))
}

func TestDecodeDeltaTooManyUpdatesOverNumBuckets(t *testing.T) {
	buf := make([]byte, deltaHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], NumBuckets+1)
	_, err := DecodeDelta(buf)
	require.Error(t, err)
	require.Equal(t, inspireerr.ResourceExhaustion, inspireerr.KindOf(err))
}

func TestDecodeDeltaTruncatedPayload(t *testing.T) {
	buf := make([]byte, deltaHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], 2) // claims 2 updates
	_, err := DecodeDelta(buf)                  // but supplies none
	require.Error(t, err)
	require.Equal(t, inspireerr.Validation, inspireerr.KindOf(err))
}

func TestMergeDeltasLatestWinsSortedByBucket(t *testing.T) {
	// S3 from spec.md §8.
	d1 := Delta{BlockNumber: 100, Updates: []Update{{BucketID: 0, NewCount: 10}, {BucketID: 1, NewCount: 20}}}
	d2 := Delta{BlockNumber: 101, Updates: []Update{{BucketID: 1, NewCount: 25}, {BucketID: 2, NewCount: 30}}}

	merged := MergeDeltas([]Delta{d1, d2})
	require.EqualValues(t, 101, merged.BlockNumber)
	require.Equal(t, []Update{
		{BucketID: 0, NewCount: 10},
		{BucketID: 1, NewCount: 25},
		{BucketID: 2, NewCount: 30},
	}, merged.Updates)
}
