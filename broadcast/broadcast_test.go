package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishNoSubscribers(t *testing.T) {
	b := New()
	count := b.Publish(&Delta{BlockNumber: 1, Updates: []BucketUpdate{{Bucket: 0, Count: 10}}})
	require.Equal(t, 0, count)
}

func TestPublishWithSubscriber(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	delta := &Delta{BlockNumber: 42, Updates: []BucketUpdate{{Bucket: 100, Count: 5}, {Bucket: 200, Count: 10}}}
	count := b.Publish(delta)
	require.Equal(t, 1, count)

	received := <-sub.Deltas()
	require.Equal(t, uint64(42), received.BlockNumber)
	require.Len(t, received.Updates, 2)
}

func TestSubscriberCount(t *testing.T) {
	b := New()
	require.Equal(t, 0, b.SubscriberCount())

	s1 := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	s2 := b.Subscribe()
	require.Equal(t, 2, b.SubscriberCount())

	b.Unsubscribe(s1)
	require.Equal(t, 1, b.SubscriberCount())

	_ = s2
}

func TestLaggedSubscriberIsDroppedAndClosedWithReason(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	// Fill the subscriber's buffer past capacity without draining it.
	var lastBlock uint64
	for i := 0; i < Capacity+5; i++ {
		lastBlock = uint64(i)
		b.Publish(&Delta{BlockNumber: lastBlock})
	}

	select {
	case err := <-sub.Lagged:
		require.NotNil(t, err)
		require.Contains(t, err.Error(), "lagged:")
	default:
		t.Fatal("expected subscriber to be marked lagged")
	}
	require.Equal(t, 0, b.SubscriberCount())
}

func TestLatestBlock(t *testing.T) {
	b := New()
	_, ok := b.LatestBlock()
	require.False(t, ok)

	b.Publish(&Delta{BlockNumber: 7})
	block, ok := b.LatestBlock()
	require.True(t, ok)
	require.Equal(t, uint64(7), block)
}

func TestEncodeDecodeDeltaRoundTrip(t *testing.T) {
	d := &Delta{BlockNumber: 99, Updates: []BucketUpdate{{Bucket: 1, Count: 2}, {Bucket: 0xffffffff, Count: 0xffff}}}
	encoded := encodeDelta(d)

	decoded, err := DecodeDelta(encoded)
	require.NoError(t, err)
	require.Equal(t, d.BlockNumber, decoded.BlockNumber)
	require.Equal(t, d.Updates, decoded.Updates)
}

func TestDecodeDeltaRejectsMalformedFrame(t *testing.T) {
	_, err := DecodeDelta([]byte{1, 2, 3})
	require.Error(t, err)
}
