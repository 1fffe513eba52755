package ubt

import (
	"encoding/binary"
	"fmt"

	"github.com/inspirepir/inspire/inspireerr"
)

// BasicDataSize is the fixed size of the packed basic-data leaf value.
const BasicDataSize = 32

// maxCodeSize is one past the largest value representable in the
// 3-byte code_size field (spec.md §4.3): sizes must be below it.
const maxCodeSize = 1 << 24

// BasicData is the decoded form of an account's basic-data leaf:
// version(1) || reserved(4) || code_size(3 BE) || nonce(8 BE) || balance(16 BE).
type BasicData struct {
	Version  byte
	CodeSize uint32
	Nonce    uint64
	Balance  [16]byte
}

// Pack serializes BasicData into its 32-byte wire form, rejecting a
// code_size that would not fit in 3 bytes.
func (b BasicData) Pack() ([BasicDataSize]byte, error) {
	var out [BasicDataSize]byte
	if b.CodeSize >= maxCodeSize {
		return out, inspireerr.New(inspireerr.Validation, "ubt.BasicData.Pack",
			fmt.Sprintf("code_size %d exceeds the 3-byte field (max %d)", b.CodeSize, maxCodeSize-1))
	}

	out[0] = b.Version
	// bytes 1..4 are reserved and stay zero.
	out[5] = byte(b.CodeSize >> 16)
	out[6] = byte(b.CodeSize >> 8)
	out[7] = byte(b.CodeSize)
	binary.BigEndian.PutUint64(out[8:16], b.Nonce)
	copy(out[16:32], b.Balance[:])
	return out, nil
}

// UnpackBasicData parses a 32-byte basic-data leaf.
func UnpackBasicData(data []byte) (BasicData, error) {
	if len(data) != BasicDataSize {
		return BasicData{}, inspireerr.New(inspireerr.Validation, "ubt.UnpackBasicData",
			fmt.Sprintf("expected %d bytes, got %d", BasicDataSize, len(data)))
	}
	var b BasicData
	b.Version = data[0]
	b.CodeSize = uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])
	b.Nonce = binary.BigEndian.Uint64(data[8:16])
	copy(b.Balance[:], data[16:32])
	return b, nil
}
