// Package broadcast fans bucket-index deltas out to every subscribed
// client over WebSocket (spec.md §4.6): one connection per client,
// one binary BucketDelta message per block, and a code-4000 close
// with a "lagged:<block>" reason when a slow subscriber falls behind
// the broadcast channel's buffer.
package broadcast

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/inspirepir/inspire/inspiremetrics"
)

// Capacity is how many pending deltas a subscriber's channel buffers
// before it's considered lagged — at ~12s/block this is roughly thirteen
// minutes of headroom.
const Capacity = 64

// ProtocolVersion is sent in the WebSocket Hello message on connect.
const ProtocolVersion = 1

// Delta is one block's worth of bucket-count changes, the payload
// fanned out to every subscriber.
type Delta struct {
	BlockNumber uint64
	Updates     []BucketUpdate
}

// BucketUpdate is one bucket's new count after a block.
type BucketUpdate struct {
	Bucket uint32
	Count  uint16
}

// Hello is the JSON handshake message sent immediately after a client
// subscribes, before any binary delta frames.
type Hello struct {
	Version     uint16  `json:"version"`
	BlockNumber *uint64 `json:"block_number"`
}

// LaggedError is returned to a subscriber (via its Lagged channel)
// when it fell behind the broadcast buffer and was dropped.
type LaggedError struct {
	LatestBlock *uint64
}

func (e *LaggedError) Error() string {
	if e.LatestBlock == nil {
		return "lagged"
	}
	return fmt.Sprintf("lagged:%d", *e.LatestBlock)
}

// CloseReason renders the WebSocket close-frame reason string a
// lagged subscriber's connection is closed with (code 4000).
func (e *LaggedError) CloseReason() string {
	return e.Error()
}

// Subscription is a single client's view of the broadcast: a buffered
// channel of deltas, closed (with Lagged populated) if the client
// falls behind.
type Subscription struct {
	deltas chan *Delta
	Lagged chan *LaggedError

	mu     sync.Mutex
	closed bool
}

func newSubscription() *Subscription {
	return &Subscription{
		deltas: make(chan *Delta, Capacity),
		Lagged: make(chan *LaggedError, 1),
	}
}

// Deltas returns the channel of incoming deltas for this subscription.
func (s *Subscription) Deltas() <-chan *Delta {
	return s.deltas
}

func (s *Subscription) deliver(d *Delta, latestBlock *uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.deltas <- d:
		return true
	default:
		s.closed = true
		close(s.deltas)
		s.Lagged <- &LaggedError{LatestBlock: latestBlock}
		close(s.Lagged)
		return false
	}
}

// Close unsubscribes, releasing the subscription's channels. Safe to
// call more than once and from any goroutine.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.deltas)
}

// Broadcast is the fan-out hub: one producer (the updater, after
// applying each block's deltas) and any number of WebSocket
// subscribers.
type Broadcast struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	latestBlock *uint64
}

// New creates an empty broadcast hub.
func New() *Broadcast {
	return &Broadcast{subscribers: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Broadcast) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := newSubscription()
	b.subscribers[sub] = struct{}{}
	inspiremetrics.BroadcastSubscribers.Inc()
	return sub
}

// Unsubscribe removes sub from the broadcast set and closes it.
func (b *Broadcast) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, existed := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()
	if existed {
		inspiremetrics.BroadcastSubscribers.Dec()
	}
	sub.Close()
}

// Publish fans delta out to every subscriber, dropping (and
// unsubscribing) any whose channel is full. Returns the number of
// subscribers the delta was actually delivered to.
func (b *Broadcast) Publish(delta *Delta) int {
	b.mu.Lock()
	b.latestBlock = &delta.BlockNumber
	latest := b.latestBlock
	targets := make([]*Subscription, 0, len(b.subscribers))
	for sub := range b.subscribers {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	delivered := 0
	for _, sub := range targets {
		if sub.deliver(delta, latest) {
			delivered++
		} else {
			b.Unsubscribe(sub)
			inspiremetrics.BroadcastLaggedTotal.Inc()
			log.Debug("broadcast: dropped lagged subscriber", "block", delta.BlockNumber)
		}
	}
	if delivered == 0 {
		log.Debug("broadcast: no subscribers", "block", delta.BlockNumber)
	}
	return delivered
}

// SubscriberCount returns how many subscribers are currently registered.
func (b *Broadcast) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// LatestBlock returns the most recently published block number, if any.
func (b *Broadcast) LatestBlock() (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latestBlock == nil {
		return 0, false
	}
	return *b.latestBlock, true
}
