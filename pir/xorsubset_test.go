package pir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type sliceSource []Hint

func (s sliceSource) GetEntry(idx uint64) Hint {
	if idx >= uint64(len(s)) {
		return Hint{}
	}
	return s[idx]
}

func (s sliceSource) EntryCount() uint64 { return uint64(len(s)) }

func TestXORSubsetBackendRecoversTarget(t *testing.T) {
	source := sliceSource{entryOf(1), entryOf(2), entryOf(3), entryOf(4), entryOf(5)}
	backend := NewXORSubsetBackend(source)

	subset := NewSubset(Seed{11}, 3, source.EntryCount())
	indices := subset.Expand()
	target := indices[0]

	fullHint := ComputeHint(indices, source.GetEntry)

	query := NewQuery(subset, target)
	response, err := backend.Respond(query)
	require.NoError(t, err)

	recovered := RecoverEntry(response, fullHint)
	require.Equal(t, source.GetEntry(target), recovered)
}

func TestXORSubsetBackendEntryCount(t *testing.T) {
	source := sliceSource{entryOf(1), entryOf(2)}
	backend := NewXORSubsetBackend(source)
	require.EqualValues(t, 2, backend.EntryCount())
}

func TestRLWEBackendIsUnimplemented(t *testing.T) {
	backend := NewRLWEBackend()
	_, err := backend.Respond(Query{})
	require.True(t, errors.Is(err, ErrUnimplemented))
}
