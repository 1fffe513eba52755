package pir

// RLWEBackend is a structural placeholder for a lattice-based (Ring
// Learning-With-Errors) PIR backend. spec.md scopes RLWE-based
// alternative backends as an external collaborator's concern; this
// type exists so a server can name the variant in configuration
// without this module fabricating a lattice-crypto dependency no
// example repo in the retrieval pack carries.
type RLWEBackend struct{}

// NewRLWEBackend constructs the placeholder backend.
func NewRLWEBackend() *RLWEBackend { return &RLWEBackend{} }

// Respond always fails: see ErrUnimplemented.
func (b *RLWEBackend) Respond(Query) (Hint, error) {
	return Hint{}, ErrUnimplemented
}

// EntryCount is always zero for the placeholder backend.
func (b *RLWEBackend) EntryCount() uint64 { return 0 }

var _ Backend = (*RLWEBackend)(nil)
