// Package lanerouter implements the two-lane routing scheme: a small
// "hot" lane holding the top few thousand contracts at a fixed,
// contract-assigned offset, and a large "cold" lane that hashes every
// other (contract, slot) pair into one shared index space (spec.md
// §4.7). The server learns which lane a query targets (a ~1 bit
// leak traded for a 90% bandwidth reduction on hot-lane queries) but
// never the target contract, slot, or index within a lane.
package lanerouter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/inspireerr"
)

// HotContract is one contract's entry in the hot lane manifest: its
// assigned offset range and how many storage slots it gets.
type HotContract struct {
	Address    common.Address
	Symbol     string
	StartIndex uint64
	SlotCount  uint64
	Category   string
}

// HotLaneManifest is the public (non-private) list of contracts
// promoted to the hot lane, along with the hot lane's total capacity.
// Publishing this list is a deliberate trade-off: the server always
// learns whether a query targets the hot or cold lane, in exchange for
// the hot lane's far smaller per-query bandwidth.
type HotLaneManifest struct {
	contracts []HotContract
	byAddress map[common.Address]int
	nextIndex uint64
	capacity  uint64
}

// NewHotLaneManifest creates an empty manifest sized for capacity
// total hot-lane entries.
func NewHotLaneManifest(capacity uint64) *HotLaneManifest {
	return &HotLaneManifest{
		byAddress: make(map[common.Address]int),
		capacity:  capacity,
	}
}

// AddContract appends a contract to the manifest, assigning it the
// next contiguous block of slotCount indices. Contracts are assigned
// offsets in insertion order. The manifest's capacity is not checked
// here, so the used indices can exceed it.
func (m *HotLaneManifest) AddContract(address common.Address, symbol string, slotCount uint64, category string) {
	c := HotContract{
		Address:    address,
		Symbol:     symbol,
		StartIndex: m.nextIndex,
		SlotCount:  slotCount,
		Category:   category,
	}
	m.byAddress[address] = len(m.contracts)
	m.contracts = append(m.contracts, c)
	m.nextIndex += slotCount
}

// GetContract returns the manifest entry for address, if present.
func (m *HotLaneManifest) GetContract(address common.Address) (HotContract, bool) {
	i, ok := m.byAddress[address]
	if !ok {
		return HotContract{}, false
	}
	return m.contracts[i], true
}

// AddressSet returns the set of every hot-lane contract address.
func (m *HotLaneManifest) AddressSet() map[common.Address]struct{} {
	set := make(map[common.Address]struct{}, len(m.contracts))
	for _, c := range m.contracts {
		set[c.Address] = struct{}{}
	}
	return set
}

// Contracts returns every contract in the manifest, in assignment order.
func (m *HotLaneManifest) Contracts() []HotContract {
	return m.contracts
}

// Capacity returns the hot lane's total entry budget.
func (m *HotLaneManifest) Capacity() uint64 {
	return m.capacity
}

// UsedIndices returns how many of the hot lane's indices are currently
// assigned to a contract.
func (m *HotLaneManifest) UsedIndices() uint64 {
	return m.nextIndex
}

// manifestEntry is the on-disk JSON form of one HotContract. StartIndex
// is carried on the wire (spec.md §6) even though DecodeManifestJSON
// currently reconstructs it by re-running AddContract in the same
// order rather than trusting the field directly — it's still read and
// validated against what AddContract recomputes, so a manifest that
// was reordered or hand-edited after publication is caught rather than
// silently reassigned.
type manifestEntry struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	StartIndex uint64 `json:"start_index"`
	SlotCount  uint64 `json:"slot_count"`
	Category   string `json:"category"`
}

// manifestWire is the top-level on-disk/wire object spec.md §6
// mandates: a total_entries field alongside the contract array.
type manifestWire struct {
	TotalEntries uint64          `json:"total_entries"`
	Contracts    []manifestEntry `json:"contracts"`
}

// EncodeManifestJSON serializes a manifest's contracts, in assignment
// order, for pir-seeder's lane-builder subcommand to publish.
func EncodeManifestJSON(m *HotLaneManifest) ([]byte, error) {
	contracts := m.Contracts()
	out := manifestWire{
		TotalEntries: m.Capacity(),
		Contracts:    make([]manifestEntry, len(contracts)),
	}
	for i, c := range contracts {
		out.Contracts[i] = manifestEntry{
			Address:    "0x" + hex.EncodeToString(c.Address[:]),
			Name:       c.Symbol,
			StartIndex: c.StartIndex,
			SlotCount:  c.SlotCount,
			Category:   c.Category,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeManifestJSON rebuilds a manifest from the bytes EncodeManifestJSON
// produced, for pir-server and pir-client to load.
func DecodeManifestJSON(data []byte) (*HotLaneManifest, error) {
	const op = "lanerouter.DecodeManifestJSON"
	var raw manifestWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, inspireerr.Wrap(inspireerr.Validation, op, "parsing manifest JSON", err)
	}

	manifest := NewHotLaneManifest(raw.TotalEntries)
	for _, entry := range raw.Contracts {
		addr, err := parseAddressHex(entry.Address)
		if err != nil {
			return nil, err
		}
		if manifest.nextIndex != entry.StartIndex {
			return nil, inspireerr.New(inspireerr.IntegrityViolation, op,
				fmt.Sprintf("contract %s: start_index %d disagrees with assignment order (expected %d)",
					entry.Address, entry.StartIndex, manifest.nextIndex))
		}
		manifest.AddContract(addr, entry.Name, entry.SlotCount, entry.Category)
	}
	return manifest, nil
}

// parseAddressHex parses a 20-byte address from a hex string, with or
// without a leading "0x".
func parseAddressHex(s string) (common.Address, error) {
	const op = "lanerouter.parseAddressHex"
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != common.AddressLength*2 {
		return common.Address{}, inspireerr.New(inspireerr.Validation, op,
			fmt.Sprintf("expected %d hex characters, got %d", common.AddressLength*2, len(s)))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return common.Address{}, inspireerr.Wrap(inspireerr.Validation, op, "invalid hex address", err)
	}
	var addr common.Address
	copy(addr[:], decoded)
	return addr, nil
}
