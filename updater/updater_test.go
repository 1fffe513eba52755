package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspirepir/inspire/broadcast"
	"github.com/inspirepir/inspire/bucketdb"
)

func TestApplyBlockUpdatesIndexAndPersists(t *testing.T) {
	dir := t.TempDir()
	var counts [bucketdb.NumBuckets]uint16
	idx := bucketdb.New(counts)
	hub := broadcast.New()
	u := New(idx, dir, 0, hub)

	sub := hub.Subscribe()

	delta := bucketdb.Delta{BlockNumber: 1, Updates: []bucketdb.Update{{BucketID: 5, NewCount: 3}}}
	require.NoError(t, u.ApplyBlock(delta))

	require.Equal(t, uint64(1), u.CurrentBlock())
	require.Equal(t, uint16(3), u.Index().Count(5))

	received := <-sub.Deltas()
	require.Equal(t, uint64(1), received.BlockNumber)

	_, err := os.Stat(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, deltaFileName))
	require.NoError(t, err)
}

func TestApplyBlockWithoutDataDirSkipsPersistence(t *testing.T) {
	var counts [bucketdb.NumBuckets]uint16
	idx := bucketdb.New(counts)
	u := New(idx, "", 0, nil)

	delta := bucketdb.Delta{BlockNumber: 7, Updates: []bucketdb.Update{{BucketID: 1, NewCount: 9}}}
	require.NoError(t, u.ApplyBlock(delta))
	require.Equal(t, uint64(7), u.CurrentBlock())
}

func TestApplyBlockSequenceAccumulatesDeltaTiers(t *testing.T) {
	dir := t.TempDir()
	var counts [bucketdb.NumBuckets]uint16
	idx := bucketdb.New(counts)
	u := New(idx, dir, 0, nil)

	for b := uint64(1); b <= 3; b++ {
		delta := bucketdb.Delta{BlockNumber: b, Updates: []bucketdb.Update{{BucketID: uint32(b), NewCount: uint16(b * 10)}}}
		require.NoError(t, u.ApplyBlock(delta))
	}

	require.Equal(t, uint64(3), u.CurrentBlock())
	require.Equal(t, uint16(10), u.Index().Count(1))
	require.Equal(t, uint16(20), u.Index().Count(2))
	require.Equal(t, uint16(30), u.Index().Count(3))
}
