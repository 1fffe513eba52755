package pir

import (
	"runtime"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// GeneratorConfig parameterizes hint generation: how many hints to
// produce, how large each one's subset is, and the database's total
// entry count.
type GeneratorConfig struct {
	NumHints   int
	SubsetSize uint64
	DomainSize uint64
}

// EthereumMainnetConfig is the reference sizing for a full account +
// storage snapshot: subset size sqrt(domain size), ~128x oversampling
// on the hint count for per-query freshness headroom.
func EthereumMainnetConfig() GeneratorConfig {
	return GeneratorConfig{
		NumHints:   6_700_000,
		SubsetSize: 52_250,
		DomainSize: 2_730_000_000,
	}
}

// GenerateHints builds config.NumHints hints sequentially, one
// deterministic seed per hint index (the index little-endian encoded
// into the seed's first 8 bytes, zero-padded).
func GenerateHints(source EntrySource, config GeneratorConfig) []StoredHintPair {
	hints := make([]StoredHintPair, config.NumHints)
	for i := 0; i < config.NumHints; i++ {
		hints[i] = generateOne(source, config, i)
		if i%100_000 == 0 {
			log.Info("pir: generating hints", "done", i, "total", config.NumHints)
		}
	}
	return hints
}

// GenerateHintsParallel splits the hint range into numWorkers disjoint
// chunks and computes each chunk concurrently, all reading the same
// backing source (safe: EntrySource is read-only).
func GenerateHintsParallel(source EntrySource, config GeneratorConfig, numWorkers int) []StoredHintPair {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > config.NumHints {
		numWorkers = config.NumHints
	}
	if numWorkers <= 1 {
		return GenerateHints(source, config)
	}

	hints := make([]StoredHintPair, config.NumHints)
	perWorker := config.NumHints / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == numWorkers-1 {
			end = config.NumHints
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				hints[i] = generateOne(source, config, i)
			}
		}(start, end)
	}
	wg.Wait()
	return hints
}

func generateOne(source EntrySource, config GeneratorConfig, i int) StoredHintPair {
	var seed Seed
	encodeIndexLE(seed[:8], uint64(i))

	subset := NewSubset(seed, int(config.SubsetSize), config.DomainSize)
	indices := subset.Expand()
	hint := ComputeHint(indices, source.GetEntry)
	return StoredHintPair{Subset: subset, Hint: hint}
}

func encodeIndexLE(dst []byte, v uint64) {
	for i := range dst {
		dst[i] = byte(v)
		v >>= 8
	}
}

// StoredHintPair is one generated (subset, hint) pair, ready for a
// client's hint store.
type StoredHintPair struct {
	Subset Subset
	Hint   Hint
}
