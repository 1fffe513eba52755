// Package database implements the PIR server's physical entry store:
// a flat file of fixed-size 32-byte entries, memory-mapped read-only
// for O(1) random access by index (spec.md §4.4). It serves as the
// pir.EntrySource the XOR-subset backend reads from when answering
// queries.
package database

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/inspirepir/inspire/inspireerr"
	"github.com/inspirepir/inspire/pir"
)

// Magic is the 4-byte file identifier at offset 0 of a database file.
var Magic = [4]byte{'P', 'I', 'R', '2'}

// HeaderSize is the fixed size in bytes of the database file header:
// magic(4) || reserved(4) || entry_count u64 LE(8) || reserved to 64
// bytes total (spec.md §6).
const HeaderSize = 64

// EncodeHeader serializes a database file header for entryCount
// fixed-size entries.
func EncodeHeader(entryCount uint64) []byte {
	out := make([]byte, HeaderSize)
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint64(out[8:16], entryCount)
	return out
}

// decodeHeader parses and validates the 64-byte header, rejecting a
// magic mismatch as an IntegrityViolation (spec.md §7: "fails
// initialization loudly, never silently recovered").
func decodeHeader(data []byte) (uint64, error) {
	const op = "database.decodeHeader"
	if len(data) < HeaderSize {
		return 0, inspireerr.New(inspireerr.IntegrityViolation, op, "file shorter than the 64-byte header")
	}
	if string(data[0:4]) != string(Magic[:]) {
		return 0, inspireerr.New(inspireerr.IntegrityViolation, op, "magic mismatch")
	}
	return binary.LittleEndian.Uint64(data[8:16]), nil
}

// Database is a read-only, memory-mapped flat file of fixed-size PIR
// entries, addressed past the 64-byte PIR2 header. The zero value is
// not usable; construct with Open.
type Database struct {
	file       *os.File
	mapping    mmap.MMap
	entryCount uint64
}

// Open memory-maps the entry file at path, validating its 64-byte PIR2
// header. The entry region's length must be an exact multiple of
// pir.EntrySize and must match the header's declared entry_count; a
// mismatch on either is treated as a setup error rather than silently
// recovered.
func Open(path string) (*Database, error) {
	const op = "database.Open"
	f, err := os.Open(path)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "opening entry file", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "stat'ing entry file", err)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "mapping entry file", err)
	}

	entryCount, err := decodeHeader(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}

	entryRegion := info.Size() - HeaderSize
	if entryRegion%int64(pir.EntrySize) != 0 {
		m.Unmap()
		f.Close()
		return nil, inspireerr.New(inspireerr.IntegrityViolation, op, "entry region length is not a multiple of the entry size")
	}
	if uint64(entryRegion)/uint64(pir.EntrySize) != entryCount {
		m.Unmap()
		f.Close()
		return nil, inspireerr.New(inspireerr.IntegrityViolation, op, "header entry_count disagrees with file length")
	}

	return &Database{
		file:       f,
		mapping:    m,
		entryCount: entryCount,
	}, nil
}

// Close unmaps and closes the underlying file.
func (d *Database) Close() error {
	const op = "database.Database.Close"
	if err := d.mapping.Unmap(); err != nil {
		return inspireerr.Wrap(inspireerr.TransientIO, op, "unmapping entry file", err)
	}
	return d.file.Close()
}

// GetEntry returns the entry at idx, or the zero entry if idx is out
// of range (matching the setup-time padding the encoder applies so
// every subset index, including dummy padding indices, resolves to
// something).
func (d *Database) GetEntry(idx uint64) pir.Hint {
	offset := HeaderSize + idx*uint64(pir.EntrySize)
	var entry pir.Hint
	if offset+uint64(pir.EntrySize) <= uint64(len(d.mapping)) {
		copy(entry[:], d.mapping[offset:offset+uint64(pir.EntrySize)])
	}
	return entry
}

// EntryCount returns how many fixed-size entries the file holds.
func (d *Database) EntryCount() uint64 {
	return d.entryCount
}

var _ pir.EntrySource = (*Database)(nil)
