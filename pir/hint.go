package pir

// EntryGetter fetches one database entry by index.
type EntryGetter func(idx uint64) Hint

// ComputeHint XORs together every entry named by indices.
func ComputeHint(indices []uint64, get EntryGetter) Hint {
	var hint Hint
	for _, idx := range indices {
		entry := get(idx)
		hint.XorInto(entry)
	}
	return hint
}

// UpdateHint applies the algebra a database mutation induces on a
// hint covering the changed index: new_hint = old_hint ⊕ old_value ⊕
// new_value (spec.md §4.4).
func UpdateHint(hint *Hint, oldValue, newValue Hint) {
	hint.XorInto(oldValue)
	hint.XorInto(newValue)
}

// RecoverEntry reconstructs the target entry from the server's response
// and the client's locally stored hint.
//
// The hint is the XOR of every entry in the FULL subset (computed once,
// at setup time, including the target). The query sent to the server
// must be the PUNCTURED subset — the same indices with the target
// excluded — so the server's response is the XOR of everything except
// the target. hint ⊕ response then isolates exactly the target entry.
// Querying the full (unpunctured) subset, as a naive reading of this
// algebra suggests, recovers nothing: that is the gap spec.md's Open
// Questions flag, resolved here by puncturing at query time (see
// Query.Expand and XORSubsetBackend.Respond).
func RecoverEntry(response, hint Hint) Hint {
	result := response
	result.XorInto(hint)
	return result
}
