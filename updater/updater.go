// Package updater drives the per-block ingestion loop that keeps the
// bucket index, the range-delta archive, and the WebSocket broadcast
// hub in lockstep (spec.md §4.1/§4.2/§4.6): apply one block's bucket
// deltas, persist the new snapshot and delta archive atomically, then
// notify every subscribed client.
package updater

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/inspirepir/inspire/broadcast"
	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/inspireerr"
	"github.com/inspirepir/inspire/inspiremetrics"
	"github.com/inspirepir/inspire/rangedelta"
)

const (
	snapshotFileName = "bucket-index.bin"
	deltaFileName    = "bucket-deltas.bin"
)

// Updater owns the live bucket index plus everything that must stay
// consistent with it: the rolling delta-tier writer and the broadcast
// fan-out.
type Updater struct {
	mu sync.RWMutex

	index        *bucketdb.Index
	deltas       *rangedelta.Writer
	broadcast    *broadcast.Broadcast
	dataDir      string
	currentBlock uint64
}

// New builds an Updater around an already-loaded index, starting at
// atBlock (the block the index snapshot was built from).
func New(index *bucketdb.Index, dataDir string, atBlock uint64, hub *broadcast.Broadcast) *Updater {
	return &Updater{
		index:        index,
		deltas:       rangedelta.NewWriter(),
		broadcast:    hub,
		dataDir:      dataDir,
		currentBlock: atBlock,
	}
}

// CurrentBlock returns the most recently applied block number.
func (u *Updater) CurrentBlock() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.currentBlock
}

// Index returns the live bucket index. Callers must not mutate it
// directly; use ApplyBlock.
func (u *Updater) Index() *bucketdb.Index {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.index
}

// Archive returns the current range-delta archive built from this
// updater's rolling per-tier windows.
func (u *Updater) Archive() rangedelta.Archive {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.deltas.Build(u.currentBlock)
}

// ApplyBlock applies one block's bucket-count changes: updates the
// live index, folds the delta into every range tier, persists both
// to disk, and fans the delta out to subscribers. The snapshot and
// delta archive are each written to a temp file and renamed into
// place so a reader never observes a partially written file.
func (u *Updater) ApplyBlock(delta bucketdb.Delta) error {
	const op = "updater.Updater.ApplyBlock"

	u.mu.Lock()
	// Copy-on-write: an *Index already handed out by Index() is never
	// mutated; the updated copy replaces the pointer.
	next := *u.index
	next.Apply(delta)
	u.index = &next
	u.deltas.Push(delta)
	u.currentBlock = delta.BlockNumber
	archive := u.deltas.Build(u.currentBlock)
	snapshot := u.index.EncodeCompressed()
	windowSize := u.deltas.SizeBytes()
	u.mu.Unlock()

	if u.dataDir != "" {
		if err := writeAtomic(filepath.Join(u.dataDir, snapshotFileName), snapshot); err != nil {
			return inspireerr.Wrap(inspireerr.TransientIO, op, "writing snapshot", err)
		}
		archiveBytes, err := archive.Encode()
		if err != nil {
			return inspireerr.Wrap(inspireerr.Validation, op, "encoding delta archive", err)
		}
		if err := writeAtomic(filepath.Join(u.dataDir, deltaFileName), archiveBytes); err != nil {
			return inspireerr.Wrap(inspireerr.TransientIO, op, "writing delta archive", err)
		}
	}

	if u.broadcast != nil {
		updates := make([]broadcast.BucketUpdate, len(delta.Updates))
		for i, upd := range delta.Updates {
			updates[i] = broadcast.BucketUpdate{Bucket: upd.BucketID, Count: upd.NewCount}
		}
		delivered := u.broadcast.Publish(&broadcast.Delta{BlockNumber: delta.BlockNumber, Updates: updates})
		log.Debug("updater: applied block", "block", delta.BlockNumber, "subscribers", delivered, "delta_window_size", windowSize.String())
	}

	inspiremetrics.BlocksProcessedTotal.Inc()
	return nil
}

// writeAtomic writes data to a ".tmp" sibling of path and renames it
// into place, so concurrent readers (e.g. the HTTP server serving
// /index/raw) never see a half-written file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
