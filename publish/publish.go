// Package publish abstracts where a seeder's finished artifacts (the
// bucket index, the hot and cold physical databases, and the hot-lane
// manifest) end up once a
// build pass completes. The core builder never talks to a filesystem
// or a network directly — it hands finished blobs to a Publisher,
// mirroring the write-temp-and-rename discipline the teacher uses in
// ethdb/memory_database.go and migrations.go, generalized to a target
// that might not be a local path at all.
package publish

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
)

// Publisher accepts a named artifact's bytes and makes it available to
// readers. Implementations must not expose a partially written
// artifact to a concurrent reader.
type Publisher interface {
	Publish(name string, data []byte) error
}

// LocalPublisher writes artifacts into a directory on the local
// filesystem, each via a temp-file-then-rename so a reader polling the
// directory never observes a half-written file.
type LocalPublisher struct {
	Dir string
}

// NewLocalPublisher builds a LocalPublisher rooted at dir, creating it
// if necessary.
func NewLocalPublisher(dir string) (*LocalPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalPublisher{Dir: dir}, nil
}

// Publish writes data to Dir/name via a ".tmp" sibling and rename.
func (p *LocalPublisher) Publish(name string, data []byte) error {
	path := filepath.Join(p.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RemotePublisher is a stub for publishing artifacts to a
// content-addressed or DHT-backed store (e.g. IPFS). The core builder
// only needs the Publisher interface; wiring an actual remote backend
// is out of scope the way a browser wallet is (see DESIGN.md) and is
// left for a future client implementation to supply.
type RemotePublisher struct {
	Endpoint string
}

// NewRemotePublisher builds a RemotePublisher pointed at endpoint.
func NewRemotePublisher(endpoint string) *RemotePublisher {
	return &RemotePublisher{Endpoint: endpoint}
}

// Publish logs the artifact it would have shipped and returns nil; no
// network call is made.
func (p *RemotePublisher) Publish(name string, data []byte) error {
	log.Warn("publish: remote publishing not implemented, artifact dropped",
		"endpoint", p.Endpoint, "name", name, "bytes", len(data))
	return nil
}
