package broadcast

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"

	"github.com/inspirepir/inspire/bucketdb"
)

// Upgrader is the shared WebSocket upgrader for the /index/subscribe
// endpoint. CheckOrigin is not set, so gorilla/websocket's default
// check applies: a request whose Origin header names a different host
// is refused.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const pingInterval = 30 * time.Second

// ServeSubscription upgrades conn and streams bucket deltas to it
// until the client disconnects or falls behind the broadcast buffer,
// per the protocol in spec.md §4.6:
//  1. server sends a Hello JSON frame with the protocol version and
//     the current block number
//  2. server sends one binary delta frame per block
//  3. a lagged subscriber is closed with code 4000, reason "lagged:<block>"
func ServeSubscription(w http.ResponseWriter, r *http.Request, b *Broadcast, currentBlock uint64) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	hello := Hello{Version: ProtocolVersion, BlockNumber: &currentBlock}
	helloJSON, err := json.Marshal(hello)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, helloJSON); err != nil {
		return err
	}

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	go drainClientMessages(conn)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case delta, ok := <-sub.Deltas():
			if !ok {
				// deliver closes deltas and queues the lag signal under
				// sub.mu; taking the lock waits for it to finish, so a
				// lagged subscriber still gets its 4000 close frame.
				sub.mu.Lock()
				sub.mu.Unlock()
				select {
				case laggedErr, lok := <-sub.Lagged:
					if lok {
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(4000, laggedErr.CloseReason()),
							time.Now().Add(5*time.Second))
						return laggedErr
					}
				default:
				}
				return nil
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, encodeDelta(delta)); err != nil {
				return err
			}
		case laggedErr, ok := <-sub.Lagged:
			if !ok {
				return nil
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(4000, laggedErr.CloseReason()),
				time.Now().Add(5*time.Second))
			return laggedErr
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// drainClientMessages reads and discards whatever the client sends
// (pongs, the occasional text frame) so the connection's read side
// doesn't back up; it returns once the client closes or errors.
func drainClientMessages(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug("broadcast: subscriber read ended", "err", err)
			return
		}
	}
}

// encodeDelta serializes a Delta to the binary wire form a subscribing
// client decodes: bucketdb's canonical little-endian block_number(8) ||
// update_count(4) || repeated bucket_id(4) || new_count(2) layout
// (spec.md §4.1, §6) — the same format the range-delta archive's tier
// payloads are encoded with, so one decoder on the client side serves
// both the tier payloads and the live feed. (The bucket index itself is
// a plain array of u16 counts, not this format.)
func encodeDelta(d *Delta) []byte {
	return toBucketdbDelta(d).Encode()
}

// DecodeDelta parses the binary wire form written by encodeDelta, the
// frame shape a subscribing client receives over /index/subscribe.
func DecodeDelta(data []byte) (*Delta, error) {
	decoded, err := bucketdb.DecodeDelta(data)
	if err != nil {
		return nil, err
	}
	return fromBucketdbDelta(decoded), nil
}

func toBucketdbDelta(d *Delta) bucketdb.Delta {
	updates := make([]bucketdb.Update, len(d.Updates))
	for i, u := range d.Updates {
		updates[i] = bucketdb.Update{BucketID: u.Bucket, NewCount: u.Count}
	}
	return bucketdb.Delta{BlockNumber: d.BlockNumber, Updates: updates}
}

func fromBucketdbDelta(d bucketdb.Delta) *Delta {
	updates := make([]BucketUpdate, len(d.Updates))
	for i, u := range d.Updates {
		updates[i] = BucketUpdate{Bucket: u.BucketID, Count: u.NewCount}
	}
	return &Delta{BlockNumber: d.BlockNumber, Updates: updates}
}
