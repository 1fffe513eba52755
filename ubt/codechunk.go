package ubt

import (
	"fmt"

	"github.com/inspirepir/inspire/inspireerr"
)

// ChunkSize is the number of raw bytecode bytes packed into one code chunk.
const ChunkSize = 31

// CodeChunkSize is the size of a packed code-chunk leaf value:
// leading_pushdata_len(1) || chunk_bytes(31).
const CodeChunkSize = 32

const (
	pushOpcodeBase = 0x60 // PUSH1
	pushOpcodeTop  = 0x7F // PUSH32
)

// LeadingPushDataLen walks the bytecode from the start and returns how
// many bytes at the front of chunkID's 31-byte window are immediate data
// belonging to a PUSH instruction whose opcode byte lives in an earlier
// chunk (spec.md §4.3). The result is always in [0, 31].
//
// Chunk 0 never has leading pushdata: there is no earlier instruction to
// overhang into it, including the edge case of a PUSH32 at offset 0.
func LeadingPushDataLen(code []byte, chunkID uint64) int {
	chunkStart := chunkID * ChunkSize
	if chunkStart == 0 {
		return 0
	}

	var carry int
	pc := uint64(0)
	for pc < chunkStart && pc < uint64(len(code)) {
		op := code[pc]
		immLen := uint64(0)
		if op >= pushOpcodeBase && op <= pushOpcodeTop {
			immLen = uint64(op) - (pushOpcodeBase - 1)
		}
		instrEnd := pc + 1 + immLen
		if instrEnd > uint64(len(code)) {
			instrEnd = uint64(len(code))
		}
		if instrEnd > chunkStart {
			carry = int(instrEnd - chunkStart)
		} else {
			carry = 0
		}
		pc = instrEnd
	}

	if carry > ChunkSize {
		carry = ChunkSize
	}
	return carry
}

// PackCodeChunk builds the packed leaf value for code chunk chunkID:
// leading_pushdata_len(1) || up-to-31 raw bytecode bytes, zero-padded
// past the end of code.
func PackCodeChunk(code []byte, chunkID uint64) [CodeChunkSize]byte {
	var out [CodeChunkSize]byte
	out[0] = byte(LeadingPushDataLen(code, chunkID))

	start := chunkID * ChunkSize
	for i := 0; i < ChunkSize; i++ {
		idx := start + uint64(i)
		if idx >= uint64(len(code)) {
			break
		}
		out[1+i] = code[idx]
	}
	return out
}

// NumCodeChunks returns how many 31-byte chunks cover codeLen bytes.
func NumCodeChunks(codeLen int) uint64 {
	if codeLen == 0 {
		return 0
	}
	return (uint64(codeLen) + ChunkSize - 1) / ChunkSize
}

// UnpackCodeChunk splits a packed 32-byte chunk leaf back into its
// leading-pushdata-length marker and raw body.
func UnpackCodeChunk(data []byte) (leadingPushDataLen int, body [ChunkSize]byte, err error) {
	if len(data) != CodeChunkSize {
		return 0, body, inspireerr.New(inspireerr.Validation, "ubt.UnpackCodeChunk",
			fmt.Sprintf("expected %d bytes, got %d", CodeChunkSize, len(data)))
	}
	leadingPushDataLen = int(data[0])
	copy(body[:], data[1:])
	return leadingPushDataLen, body, nil
}
