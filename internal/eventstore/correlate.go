package eventstore

import (
	"database/sql"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
)

// CorrelateToolEnd finds the most recent unpaired tool_start row for
// (agentName, toolName) — one whose tool_duration_ms is still null —
// computes the elapsed milliseconds, writes it back onto that row, and
// returns the start event's id and the duration. If no candidate exists
// it returns (0, 0, false): the caller's tool_end event is still
// inserted regardless (spec §4.2 "callers want the event even if
// unpaired").
func (s *Store) CorrelateToolEnd(agentName, toolName string) (startID int64, durationMs int64, found bool, err error) {
	err = s.db.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(`
			SELECT id, created_at FROM events
			WHERE agent_name = ? AND tool_name = ? AND event_kind = 'tool_start' AND tool_duration_ms IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, agentName, toolName)

		var id int64
		var createdAtStr string
		if err := row.Scan(&id, &createdAtStr); err != nil {
			if err == sql.ErrNoRows {
				found = false
				return nil
			}
			return err
		}

		createdAt, err := dbutil.ParseTime(createdAtStr)
		if err != nil {
			return err
		}

		duration := time.Since(createdAt).Milliseconds()
		if duration < 0 {
			duration = 0
		}

		if _, err := tx.Exec(`UPDATE events SET tool_duration_ms = ? WHERE id = ?`, duration, id); err != nil {
			return err
		}

		startID = id
		durationMs = duration
		found = true
		return nil
	})

	if err != nil {
		return 0, 0, false, wrapStoreErr("correlate_tool_end", err)
	}
	return startID, durationMs, found, nil
}
