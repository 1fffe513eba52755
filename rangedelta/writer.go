package rangedelta

import (
	"github.com/c2h5oh/datasize"

	"github.com/inspirepir/inspire/bucketdb"
)

// perUpdateSize is the in-memory footprint of one bucketdb.Update, used
// by SizeBytes to report the writer's rolling-window memory footprint
// in human-readable form.
const perUpdateSize = 4 + 2 // BucketID + NewCount, matches bucketdb's updateSize

// Writer accumulates the last N per-block deltas for each tier and
// produces a fresh Archive on demand. It keeps history in memory only;
// callers are responsible for durably persisting the resulting Archive
// (see updater.Updater.ApplyBlock for the write-temp-and-rename path).
type Writer struct {
	windows []window
}

type window struct {
	blocksCovered uint32
	recent        []bucketdb.Delta // ring buffer, oldest first, capacity blocksCovered
}

// NewWriter creates a Writer tracking the fixed tier sizes.
func NewWriter() *Writer {
	w := &Writer{windows: make([]window, len(Tiers))}
	for i, t := range Tiers {
		w.windows[i] = window{blocksCovered: t, recent: make([]bucketdb.Delta, 0, t)}
	}
	return w
}

// Push records one block's delta into every tier's rolling window,
// evicting the oldest entry once a window is at capacity.
func (w *Writer) Push(d bucketdb.Delta) {
	for i := range w.windows {
		win := &w.windows[i]
		win.recent = append(win.recent, d)
		if uint32(len(win.recent)) > win.blocksCovered {
			win.recent = win.recent[1:]
		}
	}
}

// SizeBytes reports the writer's current rolling-window memory
// footprint, for the updater to log alongside each applied block.
func (w *Writer) SizeBytes() datasize.ByteSize {
	var total uint64
	for _, win := range w.windows {
		for _, d := range win.recent {
			total += uint64(len(d.Updates)) * perUpdateSize
		}
	}
	return datasize.ByteSize(total)
}

// Build merges each tier's current window and assembles a complete,
// directory-consistent Archive rooted at currentBlock.
func (w *Writer) Build(currentBlock uint64) Archive {
	entries := make([]Entry, len(w.windows))
	deltas := make([]bucketdb.Delta, len(w.windows))

	offset := uint32(HeaderSize + len(w.windows)*EntrySize)
	for i, win := range w.windows {
		merged := bucketdb.MergeDeltas(win.recent)
		payload := merged.Encode()
		deltas[i] = merged
		entries[i] = Entry{
			BlocksCovered: win.blocksCovered,
			Offset:        offset,
			Size:          uint32(len(payload)),
			EntryCount:    uint32(len(merged.Updates)),
		}
		offset += uint32(len(payload))
	}

	return Archive{
		Header:  Header{Version: Version, CurrentBlock: currentBlock, NumRanges: uint32(len(entries))},
		Entries: entries,
		Deltas:  deltas,
	}
}
