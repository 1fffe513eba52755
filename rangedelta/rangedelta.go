// Package rangedelta implements the multi-tier cumulative delta archive
// that lets a client resynchronize after missing an arbitrary number of
// blocks with a single HTTP range read (spec.md §4.2).
//
// The tiered-window, merge-and-flush approach is grounded on turbo-geth's
// eth/stagedsync/stage_log_index.go, which accumulates per-block roaring
// bitmaps in memory and flushes merged shards to disk on a ticker; here
// the "shards" are cumulative windows of bucket deltas instead of log
// bitmaps, and the "ticker" is driven by the tier boundaries rather than
// wall-clock time.
package rangedelta

import (
	"encoding/binary"
	"fmt"

	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/inspireerr"
)

// Magic is the 4-byte file identifier at offset 0 of a range-delta file.
var Magic = [4]byte{'B', 'D', 'L', 'T'}

// Version is the wire format version this package reads and writes.
const Version = 1

// Tiers is the fixed, ordered list of cumulative window sizes.
var Tiers = []uint32{1, 10, 100, 1000, 10000}

// HeaderSize is the fixed size in bytes of RangeDeltaHeader.
const HeaderSize = 64

// EntrySize is the fixed size in bytes of one RangeEntry.
const EntrySize = 16

// Header is the 64-byte directory header of a range-delta file.
type Header struct {
	Version      uint32
	CurrentBlock uint64
	NumRanges    uint32
}

// Encode serializes the header: magic(4) || version(4 LE) ||
// current_block(8 LE) || num_ranges(4 LE) || 44 reserved zero bytes.
func (h Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint32(out[4:8], h.Version)
	binary.LittleEndian.PutUint64(out[8:16], h.CurrentBlock)
	binary.LittleEndian.PutUint32(out[16:20], h.NumRanges)
	return out
}

// DecodeHeader parses a 64-byte header, verifying the magic (an
// IntegrityViolation if it disagrees — spec.md §7).
func DecodeHeader(data []byte) (Header, error) {
	const op = "rangedelta.DecodeHeader"
	if len(data) < HeaderSize {
		return Header{}, inspireerr.New(inspireerr.Validation, op, "header too short")
	}
	if string(data[0:4]) != string(Magic[:]) {
		return Header{}, inspireerr.New(inspireerr.IntegrityViolation, op, "magic mismatch")
	}
	return Header{
		Version:      binary.LittleEndian.Uint32(data[4:8]),
		CurrentBlock: binary.LittleEndian.Uint64(data[8:16]),
		NumRanges:    binary.LittleEndian.Uint32(data[16:20]),
	}, nil
}

// Entry is one 16-byte directory entry describing where a tier's merged
// payload lives inside the file.
type Entry struct {
	BlocksCovered uint32
	Offset        uint32
	Size          uint32
	EntryCount    uint32
}

// Encode serializes an Entry to its 16-byte wire form.
func (e Entry) Encode() []byte {
	out := make([]byte, EntrySize)
	binary.LittleEndian.PutUint32(out[0:4], e.BlocksCovered)
	binary.LittleEndian.PutUint32(out[4:8], e.Offset)
	binary.LittleEndian.PutUint32(out[8:12], e.Size)
	binary.LittleEndian.PutUint32(out[12:16], e.EntryCount)
	return out
}

// DecodeEntry parses a 16-byte directory entry.
func DecodeEntry(data []byte) (Entry, error) {
	if len(data) < EntrySize {
		return Entry{}, inspireerr.New(inspireerr.Validation, "rangedelta.DecodeEntry", "entry too short")
	}
	return Entry{
		BlocksCovered: binary.LittleEndian.Uint32(data[0:4]),
		Offset:        binary.LittleEndian.Uint32(data[4:8]),
		Size:          binary.LittleEndian.Uint32(data[8:12]),
		EntryCount:    binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// Archive is the fully decoded form of a range-delta file: header,
// directory, and per-tier merged deltas.
type Archive struct {
	Header  Header
	Entries []Entry
	Deltas  []bucketdb.Delta // parallel to Entries, in Tiers order
}

// Encode serializes a complete archive, checking that offsets are
// monotonically increasing and non-overlapping and that the tier order
// matches Tiers (spec.md §3 invariant) before writing anything.
func (a Archive) Encode() ([]byte, error) {
	const op = "rangedelta.Archive.Encode"
	if len(a.Entries) != len(Tiers) || len(a.Deltas) != len(Tiers) {
		return nil, inspireerr.New(inspireerr.Validation, op, "archive must carry exactly one entry/delta per tier")
	}
	for i, e := range a.Entries {
		if e.BlocksCovered != Tiers[i] {
			return nil, inspireerr.New(inspireerr.Validation, op,
				fmt.Sprintf("tier %d: expected blocksCovered %d, got %d", i, Tiers[i], e.BlocksCovered))
		}
	}

	dirSize := uint32(HeaderSize + len(a.Entries)*EntrySize)
	payloads := make([][]byte, len(a.Deltas))
	offset := dirSize
	for i, d := range a.Deltas {
		payloads[i] = d.Encode()
		if a.Entries[i].Offset != offset {
			return nil, inspireerr.New(inspireerr.Validation, op,
				fmt.Sprintf("tier %d: offset %d does not follow previous payload (expected %d)", i, a.Entries[i].Offset, offset))
		}
		if int(a.Entries[i].Size) != len(payloads[i]) {
			return nil, inspireerr.New(inspireerr.Validation, op,
				fmt.Sprintf("tier %d: declared size %d does not match encoded payload %d", i, a.Entries[i].Size, len(payloads[i])))
		}
		offset += a.Entries[i].Size
	}

	hdr := a.Header
	hdr.Version = Version
	hdr.NumRanges = uint32(len(a.Entries))

	out := make([]byte, 0, offset)
	out = append(out, hdr.Encode()...)
	for _, e := range a.Entries {
		out = append(out, e.Encode()...)
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out, nil
}

// DecodeArchive parses a complete range-delta file, verifying the
// directory and tier order, and the ProtocolVersionMismatch case.
func DecodeArchive(data []byte) (Archive, error) {
	const op = "rangedelta.DecodeArchive"
	hdr, err := DecodeHeader(data)
	if err != nil {
		return Archive{}, err
	}
	if hdr.Version != Version {
		return Archive{}, inspireerr.ProtocolVersionError(op, Version, hdr.Version)
	}
	if int(hdr.NumRanges) != len(Tiers) {
		return Archive{}, inspireerr.New(inspireerr.IntegrityViolation, op,
			fmt.Sprintf("expected %d ranges, header declares %d", len(Tiers), hdr.NumRanges))
	}

	entries := make([]Entry, hdr.NumRanges)
	dirOff := HeaderSize
	for i := range entries {
		e, err := DecodeEntry(data[dirOff:])
		if err != nil {
			return Archive{}, err
		}
		entries[i] = e
		dirOff += EntrySize
	}

	var lastEnd uint32
	deltas := make([]bucketdb.Delta, hdr.NumRanges)
	for i, e := range entries {
		if e.BlocksCovered != Tiers[i] {
			return Archive{}, inspireerr.New(inspireerr.IntegrityViolation, op,
				fmt.Sprintf("tier %d out of order: expected %d blocks covered, got %d", i, Tiers[i], e.BlocksCovered))
		}
		if e.Offset < lastEnd {
			return Archive{}, inspireerr.New(inspireerr.IntegrityViolation, op, "range offsets overlap or go backwards")
		}
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(len(data)) {
			return Archive{}, inspireerr.New(inspireerr.Validation, op, "range entry extends past end of file")
		}
		d, err := bucketdb.DecodeDelta(data[e.Offset:end])
		if err != nil {
			return Archive{}, err
		}
		deltas[i] = d
		lastEnd = uint32(end)
	}

	return Archive{Header: hdr, Entries: entries, Deltas: deltas}, nil
}

// InfoBytes returns the header+directory prefix only — what
// "/index/deltas/info" serves (spec.md §6).
func (a Archive) InfoBytes() []byte {
	hdr := a.Header
	hdr.Version = Version
	hdr.NumRanges = uint32(len(a.Entries))
	out := hdr.Encode()
	for _, e := range a.Entries {
		out = append(out, e.Encode()...)
	}
	return out
}

// SelectTier returns the index into Tiers of the smallest tier whose
// BlocksCovered is >= behindBlocks, or -1 if the client is too far behind
// (behindBlocks > the largest tier) and should fall back to a full
// bucket-index download (spec.md §4.2, worked example S2).
func SelectTier(behindBlocks uint64) int {
	return selectTierFrom(Tiers, behindBlocks)
}

func selectTierFrom(tiers []uint32, behindBlocks uint64) int {
	if behindBlocks == 0 {
		return -1
	}
	for i, t := range tiers {
		if uint64(t) >= behindBlocks {
			return i
		}
	}
	return -1
}
