package pir

// EntrySource is anything that can answer "what's at index idx" and
// report how many entries it holds — satisfied by the mmap'd physical
// database (see the database package) and by an in-memory slice in
// tests.
type EntrySource interface {
	GetEntry(idx uint64) Hint
	EntryCount() uint64
}

// XORSubsetBackend is the Dummy-Subsets responder: it expands a
// client's punctured query and XORs the named entries together
// (spec.md §4.4; grounded on the original responder's "expand seed,
// XOR subset entries" shape).
type XORSubsetBackend struct {
	source EntrySource
}

// NewXORSubsetBackend wraps an EntrySource as a Backend.
func NewXORSubsetBackend(source EntrySource) *XORSubsetBackend {
	return &XORSubsetBackend{source: source}
}

// Respond computes the XOR of every entry named by q's punctured subset.
func (b *XORSubsetBackend) Respond(q Query) (Hint, error) {
	indices := q.Expand()
	return ComputeHint(indices, b.source.GetEntry), nil
}

// EntryCount reports the underlying source's entry count.
func (b *XORSubsetBackend) EntryCount() uint64 {
	return b.source.EntryCount()
}

var _ Backend = (*XORSubsetBackend)(nil)
