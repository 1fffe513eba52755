// Package pir implements the Dummy-Subsets private information retrieval
// scheme: client-side PRF-derived subsets, server-side XOR responders,
// and the hint algebra that ties them together (spec.md §4.4).
package pir

import "github.com/inspirepir/inspire/common"

// EntrySize is the size in bytes of one database entry (an Ethereum
// storage slot value).
const EntrySize = common.HashLength

// Hint is the XOR parity of every entry in a subset.
type Hint = common.Entry

// DefaultSubsetSizeFactor approximates sqrt(N) for the mainnet-scale
// configuration the seeder defaults to (spec.md §4.4).
const DefaultSubsetSizeFactor = 52_250
