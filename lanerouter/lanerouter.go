package lanerouter

import (
	"github.com/inspirepir/inspire/common"
)

// Lane identifies which of the two PIR databases a query lands in.
type Lane int

const (
	// Hot is the small, per-contract-indexed lane for high-traffic
	// contracts (spec.md's worked example: USDC, WETH, ...).
	Hot Lane = iota
	// Cold is the large, globally-hashed lane for everything else.
	Cold
)

func (l Lane) String() string {
	if l == Hot {
		return "hot"
	}
	return "cold"
}

// LaneRouter decides, for a given contract, whether a query goes to
// the hot or cold lane, and computes the index within that lane.
type LaneRouter struct {
	hotAddresses     map[common.Address]struct{}
	manifest         *HotLaneManifest
	coldTotalEntries uint64
}

// New builds a router from a hot lane manifest with no cold lane size set.
func New(manifest *HotLaneManifest) *LaneRouter {
	return WithColdEntries(manifest, 0)
}

// WithColdEntries builds a router with a known cold lane size.
func WithColdEntries(manifest *HotLaneManifest, coldTotalEntries uint64) *LaneRouter {
	return &LaneRouter{
		hotAddresses:     manifest.AddressSet(),
		manifest:         manifest,
		coldTotalEntries: coldTotalEntries,
	}
}

// SetColdEntries sets the cold lane's total entry count, enabling cold
// lane index computation.
func (r *LaneRouter) SetColdEntries(total uint64) {
	r.coldTotalEntries = total
}

// Route returns which lane serves contract.
func (r *LaneRouter) Route(contract common.Address) Lane {
	if _, ok := r.hotAddresses[contract]; ok {
		return Hot
	}
	return Cold
}

// GetHotIndex returns the hot lane index for (contract, slot), or
// false if contract isn't in the hot lane, or has a zero slot count.
func (r *LaneRouter) GetHotIndex(contract common.Address, slot common.StorageKey) (uint64, bool) {
	info, ok := r.manifest.GetContract(contract)
	if !ok {
		return 0, false
	}
	return hotIndex(info.StartIndex, slot, info.SlotCount)
}

// GetColdIndex returns the cold lane index for (contract, slot), or
// false if the cold lane's total entry count hasn't been set yet.
func (r *LaneRouter) GetColdIndex(contract common.Address, slot common.StorageKey) (uint64, bool) {
	return coldIndex(contract, slot, r.coldTotalEntries)
}

// Manifest returns the router's hot lane manifest.
func (r *LaneRouter) Manifest() *HotLaneManifest {
	return r.manifest
}

// HotContractCount returns how many contracts are in the hot lane.
func (r *LaneRouter) HotContractCount() int {
	return len(r.hotAddresses)
}

// IsHot reports whether address is in the hot lane.
func (r *LaneRouter) IsHot(address common.Address) bool {
	_, ok := r.hotAddresses[address]
	return ok
}

// QueryTarget identifies the logical storage entry a client wants.
type QueryTarget struct {
	Contract common.Address
	Slot     common.StorageKey
}

// RoutedQuery is a QueryTarget resolved to a lane and an index within it.
type RoutedQuery struct {
	Target QueryTarget
	Lane   Lane
	Index  uint64
}

// Resolve routes target to a lane and computes its index within that
// lane, returning false if the target's lane can't yet produce an
// index (hot lane: the contract's slot count is zero; cold lane: total
// entries not yet set).
func (r *LaneRouter) Resolve(target QueryTarget) (RoutedQuery, bool) {
	lane := r.Route(target.Contract)
	var idx uint64
	var ok bool
	switch lane {
	case Hot:
		idx, ok = r.GetHotIndex(target.Contract, target.Slot)
	case Cold:
		idx, ok = r.GetColdIndex(target.Contract, target.Slot)
	}
	if !ok {
		return RoutedQuery{}, false
	}
	return RoutedQuery{Target: target, Lane: lane, Index: idx}, true
}
