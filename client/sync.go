package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/inspireerr"
	"github.com/inspirepir/inspire/rangedelta"
)

// Syncer resynchronizes a client's local bucket index after missing an
// arbitrary number of blocks, picking between a targeted range-delta
// read and a full re-download: try the smallest tier covering the gap;
// for a gap too large for any tier, fall back to downloading the whole
// bucket index. Syncer does not watch the broadcast stream and does not
// react to lagged-disconnect (4000) close frames on its own.
type Syncer struct {
	ServerURL    string
	CurrentBlock uint64
	Index        *bucketdb.Index
	http         *http.Client
}

// NewSyncer builds a Syncer starting from an already-downloaded index.
func NewSyncer(serverURL string, index *bucketdb.Index, atBlock uint64) *Syncer {
	return &Syncer{ServerURL: serverURL, CurrentBlock: atBlock, Index: index, http: &http.Client{Timeout: 60 * time.Second}}
}

// Resync brings the local index up to latestBlock, choosing the
// smallest tier that covers the gap and falling back to a full
// download when the gap exceeds every tier (spec.md §4.2, worked
// example S2).
func (s *Syncer) Resync(ctx context.Context, latestBlock uint64) error {
	const op = "client.Syncer.Resync"
	if latestBlock < s.CurrentBlock {
		return inspireerr.New(inspireerr.Validation, op, "latest block is behind the local snapshot")
	}
	behind := latestBlock - s.CurrentBlock
	if behind == 0 {
		return nil
	}

	tier := rangedelta.SelectTier(behind)
	if tier < 0 {
		if err := s.fullResync(ctx); err != nil {
			return err
		}
		s.CurrentBlock = latestBlock
		return nil
	}

	delta, currentBlock, err := s.fetchTierDelta(ctx, tier)
	if err != nil {
		return err
	}
	s.Index.Apply(delta)
	s.CurrentBlock = currentBlock
	return nil
}

// fullResync downloads the complete compressed bucket index and
// replaces the local one wholesale. Resync calls it only when the
// client has missed more blocks than the largest delta tier covers.
func (s *Syncer) fullResync(ctx context.Context) error {
	const op = "client.Syncer.fullResync"
	data, err := s.get(ctx, "/index/raw")
	if err != nil {
		return err
	}
	idx, err := bucketdb.DecodeCompressed(data)
	if err != nil {
		return inspireerr.Wrap(inspireerr.IntegrityViolation, op, "decoding full index", err)
	}
	s.Index = idx
	return nil
}

// fetchTierDelta fetches the directory from "/index/deltas/info" to
// locate tier's (offset, size) window, then range-fetches only that
// window from "/index/deltas" — the single HTTP range read spec.md §4.2
// is built around, instead of downloading every tier's payload to use
// one.
func (s *Syncer) fetchTierDelta(ctx context.Context, tier int) (bucketdb.Delta, uint64, error) {
	const op = "client.Syncer.fetchTierDelta"
	infoData, err := s.get(ctx, "/index/deltas/info")
	if err != nil {
		return bucketdb.Delta{}, 0, err
	}
	hdr, err := rangedelta.DecodeHeader(infoData)
	if err != nil {
		return bucketdb.Delta{}, 0, inspireerr.Wrap(inspireerr.IntegrityViolation, op, "decoding archive header", err)
	}
	if tier < 0 || tier >= int(hdr.NumRanges) {
		return bucketdb.Delta{}, 0, inspireerr.New(inspireerr.Validation, op, "tier index out of range")
	}
	entryOff := rangedelta.HeaderSize + tier*rangedelta.EntrySize
	entry, err := rangedelta.DecodeEntry(infoData[entryOff:])
	if err != nil {
		return bucketdb.Delta{}, 0, inspireerr.Wrap(inspireerr.IntegrityViolation, op, "decoding directory entry", err)
	}

	payload, err := s.getRange(ctx, "/index/deltas", uint64(entry.Offset), uint64(entry.Offset)+uint64(entry.Size)-1)
	if err != nil {
		return bucketdb.Delta{}, 0, err
	}
	delta, err := bucketdb.DecodeDelta(payload)
	if err != nil {
		return bucketdb.Delta{}, 0, inspireerr.Wrap(inspireerr.IntegrityViolation, op, "decoding tier payload", err)
	}
	return delta, hdr.CurrentBlock, nil
}

func (s *Syncer) get(ctx context.Context, path string) ([]byte, error) {
	const op = "client.Syncer.get"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ServerURL+path, nil)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.Validation, op, "building request", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "requesting "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, inspireerr.New(inspireerr.TransientIO, op, fmt.Sprintf("%s returned status %d", path, resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// getRange issues a byte-range GET for [start, end] (inclusive) and
// returns exactly that window. A server that honors the Range header
// answers 206 with just the window; one that doesn't falls back to a
// full 200 response, in which case the window is sliced out locally
// so callers never see the difference.
func (s *Syncer) getRange(ctx context.Context, path string, start, end uint64) ([]byte, error) {
	const op = "client.Syncer.getRange"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ServerURL+path, nil)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.Validation, op, "building request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "requesting "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, inspireerr.Wrap(inspireerr.TransientIO, op, "reading response", err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return body, nil
	case http.StatusOK:
		if end >= uint64(len(body)) {
			return nil, inspireerr.New(inspireerr.IntegrityViolation, op, "range end past end of unranged response")
		}
		return body[start : end+1], nil
	default:
		return nil, inspireerr.New(inspireerr.TransientIO, op, fmt.Sprintf("%s returned status %d for range request", path, resp.StatusCode))
	}
}
