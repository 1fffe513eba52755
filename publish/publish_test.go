package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPublisherWritesFile(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalPublisher(dir)
	require.NoError(t, err)

	require.NoError(t, p.Publish("index.bin", []byte("hello")))

	data, err := os.ReadFile(filepath.Join(dir, "index.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	_, err = os.Stat(filepath.Join(dir, "index.bin.tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestLocalPublisherCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	p, err := NewLocalPublisher(dir)
	require.NoError(t, err)
	require.NoError(t, p.Publish("db.bin", []byte("data")))

	data, err := os.ReadFile(filepath.Join(dir, "db.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)
}

func TestRemotePublisherNoops(t *testing.T) {
	p := NewRemotePublisher("ipfs://example")
	require.NoError(t, p.Publish("index.bin", []byte("x")))
}
