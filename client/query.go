package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inspirepir/inspire/pir"

	"github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/inspireerr"
)

// PirClient issues private queries against a PIR server over HTTP,
// recovering entries locally from its HintStore.
type PirClient struct {
	Hints     *HintStore
	ServerURL string
	http      *http.Client
}

// NewPirClient builds a client against serverURL, backed by hints.
func NewPirClient(hints *HintStore, serverURL string) *PirClient {
	return &PirClient{Hints: hints, ServerURL: serverURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// QueryResult is one recovered entry plus timing telemetry.
type QueryResult struct {
	Entry        pir.Hint
	QueryTime    time.Duration
	ServerTimeMs float64
}

type queryRequest struct {
	Query pir.Query `json:"query"`
}

type queryResponse struct {
	Result      string  `json:"result"`
	QueryTimeMs float64 `json:"query_time_ms"`
}

// Query privately retrieves the entry at targetIndex.
func (c *PirClient) Query(ctx context.Context, targetIndex uint64) (QueryResult, error) {
	const op = "client.PirClient.Query"
	start := time.Now()

	stored, ok := c.Hints.FindHintForTarget(targetIndex)
	if !ok {
		return QueryResult{}, inspireerr.New(inspireerr.Validation, op,
			fmt.Sprintf("no hint covers target %d", targetIndex))
	}

	query := pir.NewQuery(stored.Subset, targetIndex)
	// query.Seed is this call's own copy of the hint's seed (stored.Subset
	// is left untouched for reuse by later queries); zeroize it on every
	// exit path once it's served its purpose here (spec.md §5).
	defer common.Zeroize(query.Seed[:])
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return QueryResult{}, inspireerr.Wrap(inspireerr.Validation, op, "encoding query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerURL+"/pir/query", bytes.NewReader(body))
	if err != nil {
		return QueryResult{}, inspireerr.Wrap(inspireerr.Validation, op, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return QueryResult{}, inspireerr.Wrap(inspireerr.TransientIO, op, "sending query", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return QueryResult{}, inspireerr.New(inspireerr.TransientIO, op,
			fmt.Sprintf("server returned status %d", resp.StatusCode))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return QueryResult{}, inspireerr.Wrap(inspireerr.Validation, op, "decoding response", err)
	}

	raw, err := hex.DecodeString(parsed.Result)
	if err != nil || len(raw) != pir.EntrySize {
		return QueryResult{}, inspireerr.New(inspireerr.IntegrityViolation, op, "malformed response entry")
	}
	var response pir.Hint
	copy(response[:], raw)

	entry := pir.RecoverEntry(response, stored.Hint)

	return QueryResult{
		Entry:        entry,
		QueryTime:    time.Since(start),
		ServerTimeMs: parsed.QueryTimeMs,
	}, nil
}

// QueryBatch runs Query for each index in sequence.
func (c *PirClient) QueryBatch(ctx context.Context, indices []uint64) ([]QueryResult, error) {
	results := make([]QueryResult, 0, len(indices))
	for _, idx := range indices {
		r, err := c.Query(ctx, idx)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
