package pir

import "github.com/inspirepir/inspire/inspireerr"

// Backend answers a compressed Query against a concrete database
// representation. xorsubset.go is the scheme this module implements
// end to end; rlwe.go is a structural placeholder for the lattice-based
// alternative spec.md scopes as an external collaborator's concern.
type Backend interface {
	Respond(q Query) (Hint, error)
	EntryCount() uint64
}

// BackendKind tags which Backend variant a server is configured with.
type BackendKind int

const (
	// BackendXORSubset is the Dummy-Subsets XOR responder (the only
	// variant with a full implementation here).
	BackendXORSubset BackendKind = iota
	// BackendRLWE names the out-of-scope lattice-based alternative.
	BackendRLWE
)

// ErrUnimplemented is returned by backend variants spec.md scopes out
// of this implementation.
var ErrUnimplemented = inspireerr.New(inspireerr.Validation, "pir", "backend variant not implemented")
