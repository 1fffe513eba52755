// Package common holds the shared data types and hash primitives used
// across the bucket index, the UBT keying scheme, and the PIR core.
package common

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/blake3"

	"github.com/inspirepir/inspire/inspireerr"
)

const (
	// AddressLength is the size in bytes of an Ethereum address.
	AddressLength = ethcommon.AddressLength
	// HashLength is the size in bytes of a storage key, a storage value,
	// and a database entry.
	HashLength = ethcommon.HashLength
	// RecordLength is the size of one flat-dump record: address || slot || value.
	RecordLength = AddressLength + HashLength + HashLength
)

// Address is the 20-byte identifier of a contract or externally owned account.
type Address = ethcommon.Address

// StorageKey is a 32-byte storage slot identifier.
type StorageKey = ethcommon.Hash

// StorageValue is a 32-byte storage slot value.
type StorageValue = ethcommon.Hash

// Entry is one 32-byte value slot in the physical database.
type Entry [HashLength]byte

// XorInto XORs src into e in place. It is associative and commutative,
// and xor_into(e, e) == zero for any e (the algebra the hint engine relies on).
func (e *Entry) XorInto(src Entry) {
	for i := range e {
		e[i] ^= src[i]
	}
}

// IsZero reports whether every byte of the entry is zero.
func (e Entry) IsZero() bool {
	for _, b := range e {
		if b != 0 {
			return false
		}
	}
	return true
}

// Record is the 84-byte triple used in flat database dumps.
type Record struct {
	Address Address
	Slot    StorageKey
	Value   StorageValue
}

// DecodeRecord parses one RecordLength-byte record. Trailing partial
// records must be detected by the caller (a length check before calling).
func DecodeRecord(b []byte) (Record, error) {
	if len(b) != RecordLength {
		return Record{}, inspireerr.New(inspireerr.Validation, "common.DecodeRecord",
			fmt.Sprintf("expected %d bytes, got %d", RecordLength, len(b)))
	}
	var r Record
	copy(r.Address[:], b[0:AddressLength])
	copy(r.Slot[:], b[AddressLength:AddressLength+HashLength])
	copy(r.Value[:], b[AddressLength+HashLength:])
	return r, nil
}

// Encode serializes the record back to its 84-byte wire form.
func (r Record) Encode() []byte {
	out := make([]byte, RecordLength)
	copy(out[0:AddressLength], r.Address[:])
	copy(out[AddressLength:AddressLength+HashLength], r.Slot[:])
	copy(out[AddressLength+HashLength:], r.Value[:])
	return out
}

// Keccak256 hashes the concatenation of data using Keccak-256.
func Keccak256(data ...[]byte) [32]byte {
	return crypto.Keccak256Hash(data...)
}

// Blake3_31 returns the first 31 bytes of BLAKE3(data), used as a UBT stem.
func Blake3_31(data []byte) [31]byte {
	full := blake3.Sum256(data)
	var out [31]byte
	copy(out[:], full[:31])
	return out
}

// MixChunks folds data through a SipHash-like add-rotate-xor-multiply
// pass over consecutive 8-byte little-endian chunks (the last chunk is
// zero-padded if data isn't a multiple of 8 bytes), starting from seed.
// The lane router (spec.md §4.7) uses this twice with different
// constants: once to mix a storage slot, once to mix an address before
// folding a slot into the same running hash.
func MixChunks(seed uint64, data []byte, rotate uint, xorShift uint, mul uint64) uint64 {
	h := seed
	for len(data) > 0 {
		var buf [8]byte
		n := copy(buf[:], data)
		data = data[n:]
		val := binary.LittleEndian.Uint64(buf[:])

		h += val
		h = bits.RotateLeft64(h, int(rotate))
		h ^= h >> xorShift
		h *= mul
	}
	return h
}

// Avalanche64 is the 64-bit finisher (splitmix64/MurmurHash3 fmix64
// style) every lane-router hash ends with.
func Avalanche64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return x
}

// Zeroize overwrites b with zero bytes. Used on every exit path that
// drops PRF seeds or other secret material (spec.md §5, "Secret zeroization").
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
