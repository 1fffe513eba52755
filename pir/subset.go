package pir

import (
	"crypto/aes"
	"encoding/binary"
	"sort"

	"github.com/inspirepir/inspire/common"
)

// Seed is the 32-byte secret that deterministically expands into a
// subset of database indices.
type Seed [32]byte

// Subset is a pseudorandom set of database indices described entirely
// by its seed, size, and the domain it is drawn from — the whole point
// being that it serializes to ~48 bytes instead of the expanded index
// list (spec.md §4.4).
type Subset struct {
	Seed       Seed
	Size       int
	DomainSize uint64
}

// NewSubset builds a Subset from an explicit seed.
func NewSubset(seed Seed, size int, domainSize uint64) Subset {
	return Subset{Seed: seed, Size: size, DomainSize: domainSize}
}

// Expand deterministically materializes the subset's indices, sorted
// ascending with no duplicates.
func (s Subset) Expand() []uint64 {
	return expandSeed(s.Seed, s.Size, s.DomainSize)
}

// Contains reports whether target is one of the subset's expanded indices.
func (s Subset) Contains(target uint64) bool {
	indices := s.Expand()
	i := sort.Search(len(indices), func(i int) bool { return indices[i] >= target })
	return i < len(indices) && indices[i] == target
}

// prf is an AES-128-keyed pseudorandom function over a counter, used to
// derive subset indices deterministically from a seed (spec.md §4.4:
// "AES-128-CTR pseudorandom subset expansion from a 32-byte seed"). The
// first 16 bytes of the seed become the AES key; each counter value is
// encrypted as a single block and folded down to one index via modular
// reduction.
type prf struct {
	cipher     cipherBlock
	domainSize uint64
}

// cipherBlock is the subset of cipher.Block this package needs, kept
// narrow so it's trivial to substitute in tests.
type cipherBlock interface {
	Encrypt(dst, src []byte)
}

// newPRF takes seed by value: once aes.NewCipher has expanded it into
// the cipher's own key schedule, this function's copy of the key
// material is zeroized before returning (spec.md §5, "Secret
// zeroization") — the caller's original seed is untouched.
func newPRF(seed Seed, domainSize uint64) prf {
	block, err := aes.NewCipher(seed[:16])
	if err != nil {
		// aes.NewCipher only fails on a bad key length, and we always
		// pass exactly 16 bytes.
		panic(err)
	}
	common.Zeroize(seed[:])
	return prf{cipher: block, domainSize: domainSize}
}

func (p prf) generateIndex(counter uint64) uint64 {
	var block [aes.BlockSize]byte
	binary.LittleEndian.PutUint64(block[:8], counter)

	var encrypted [aes.BlockSize]byte
	p.cipher.Encrypt(encrypted[:], block[:])

	value := binary.LittleEndian.Uint64(encrypted[:8])
	return value % p.domainSize
}

// generateSubset expands to exactly size distinct indices via rejection
// sampling, returned sorted ascending.
func (p prf) generateSubset(size int) []uint64 {
	seen := make(map[uint64]struct{}, size)
	indices := make([]uint64, 0, size)
	var counter uint64
	for len(indices) < size {
		idx := p.generateIndex(counter)
		counter++
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

func expandSeed(seed Seed, size int, domainSize uint64) []uint64 {
	return newPRF(seed, domainSize).generateSubset(size)
}
