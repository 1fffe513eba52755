package pir

import "math"

// NoExclusion marks a Query that should not punture any index — used
// when the server side is asked to materialize a hint's full subset
// rather than answer a client query.
const NoExclusion = math.MaxUint64

// Query is the compressed, network-transmitted request a client sends
// a responder: a subset descriptor plus (for the Dummy-Subsets
// puncturing scheme) the single index to omit from the server's XOR.
type Query struct {
	Seed       Seed   `json:"seed"`
	SubsetSize uint64 `json:"subset_size"`
	DomainSize uint64 `json:"domain_size"`
	Exclude    uint64 `json:"exclude"`
}

// NewQuery builds a Query that punctures target out of subset's
// expansion.
func NewQuery(subset Subset, target uint64) Query {
	return Query{
		Seed:       subset.Seed,
		SubsetSize: uint64(subset.Size),
		DomainSize: subset.DomainSize,
		Exclude:    target,
	}
}

// Expand materializes the subset's indices with Exclude removed, if
// present (it always should be, for a well-formed client query).
func (q Query) Expand() []uint64 {
	indices := expandSeed(q.Seed, int(q.SubsetSize), q.DomainSize)
	if q.Exclude == NoExclusion {
		return indices
	}
	out := indices[:0:0]
	for _, idx := range indices {
		if idx == q.Exclude {
			continue
		}
		out = append(out, idx)
	}
	return out
}
