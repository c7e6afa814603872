package eventstore

import (
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/pkg/types"
)

// UpsertSessionMetrics replaces the metrics row for (agent_name, bead_id).
func (s *Store) UpsertSessionMetrics(m *types.SessionMetrics) error {
	_, err := s.db.Exec(`
		INSERT INTO session_metrics (agent_name, bead_id, tokens_used, cost_usd, duration_ms, tool_calls)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_name, bead_id) DO UPDATE SET
			tokens_used=excluded.tokens_used,
			cost_usd=excluded.cost_usd,
			duration_ms=excluded.duration_ms,
			tool_calls=excluded.tool_calls
	`, m.AgentName, m.BeadID, m.TokensUsed, m.CostUSD, m.DurationMs, m.ToolCalls)
	return wrapStoreErr("upsert_session_metrics", err)
}

// InsertTokenSnapshot appends a point-in-time token usage sample.
func (s *Store) InsertTokenSnapshot(snap *types.TokenSnapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO token_snapshots (agent_name, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?)
	`, snap.AgentName, snap.InputTokens, snap.OutputTokens, dbutil.FormatTime(snap.CreatedAt))
	return wrapStoreErr("insert_token_snapshot", err)
}
