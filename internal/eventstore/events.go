package eventstore

import (
	"database/sql"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/pkg/types"
)

// Insert appends one event. CreatedAt defaults to now if zero.
func (s *Store) Insert(ev *types.StoredEvent) (int64, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.Level == "" {
		ev.Level = types.LevelInfo
	}

	res, err := s.db.Exec(`
		INSERT INTO events (run_id, agent_name, session_id, event_kind, tool_name, tool_args,
			tool_duration_ms, level, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullableString(ev.RunID), ev.AgentName, nullableString(ev.SessionID), string(ev.Kind),
		nullableString(ev.ToolName), nullableString(ev.ToolArgsJSON), ev.ToolDurationMs,
		string(ev.Level), nullableString(ev.PayloadJSON), dbutil.FormatTime(ev.CreatedAt),
	)
	if err != nil {
		return 0, wrapStoreErr("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapStoreErr("last_insert_id", err)
	}
	ev.ID = id
	return id, nil
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

const eventColumns = `
	id, run_id, agent_name, session_id, event_kind, tool_name, tool_args,
	tool_duration_ms, level, payload, created_at
`

func scanEvent(row interface{ Scan(...any) error }) (*types.StoredEvent, error) {
	var ev types.StoredEvent
	var runID, sessionID, toolName, toolArgs, payload sql.NullString
	var duration sql.NullInt64
	var kind, level, createdAt string

	if err := row.Scan(&ev.ID, &runID, &ev.AgentName, &sessionID, &kind, &toolName, &toolArgs,
		&duration, &level, &payload, &createdAt); err != nil {
		return nil, err
	}

	ev.RunID = runID.String
	ev.SessionID = sessionID.String
	ev.ToolName = toolName.String
	ev.ToolArgsJSON = toolArgs.String
	ev.PayloadJSON = payload.String
	ev.Kind = types.EventKind(kind)
	ev.Level = types.EventLevel(level)
	if duration.Valid {
		ev.ToolDurationMs = &duration.Int64
	}
	if t, err := dbutil.ParseTime(createdAt); err == nil {
		ev.CreatedAt = t
	}
	return &ev, nil
}

func (s *Store) queryEvents(query string, args ...any) ([]*types.StoredEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapStoreErr("query", err)
	}
	defer rows.Close()

	var out []*types.StoredEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, wrapStoreErr("scan", err)
		}
		out = append(out, ev)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// ByAgent returns every event for one agent, oldest first.
func (s *Store) ByAgent(agentName string) ([]*types.StoredEvent, error) {
	return s.queryEvents(`SELECT`+eventColumns+`FROM events WHERE agent_name = ? ORDER BY created_at ASC, id ASC`, agentName)
}

// ByRun returns every event for one run, oldest first.
func (s *Store) ByRun(runID string) ([]*types.StoredEvent, error) {
	return s.queryEvents(`SELECT`+eventColumns+`FROM events WHERE run_id = ? ORDER BY created_at ASC, id ASC`, runID)
}

// Errors returns every error-level event across all agents, oldest first.
func (s *Store) Errors() ([]*types.StoredEvent, error) {
	return s.queryEvents(`SELECT` + eventColumns + `FROM events WHERE level = 'error' ORDER BY created_at ASC, id ASC`)
}

// Timeline returns every event created at or after since, globally
// ordered by created_at ascending with id as tiebreak (spec §5).
func (s *Store) Timeline(since time.Time) ([]*types.StoredEvent, error) {
	return s.queryEvents(`SELECT`+eventColumns+`FROM events WHERE created_at >= ? ORDER BY created_at ASC, id ASC`, dbutil.FormatTime(since))
}

// ToolStats aggregates per-tool count/avg/max duration, skipping events
// with a null duration.
func (s *Store) ToolStats() ([]types.ToolStat, error) {
	rows, err := s.db.Query(`
		SELECT tool_name, COUNT(*), AVG(tool_duration_ms), MAX(tool_duration_ms)
		FROM events
		WHERE tool_name IS NOT NULL AND tool_duration_ms IS NOT NULL
		GROUP BY tool_name
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, wrapStoreErr("tool_stats", err)
	}
	defer rows.Close()

	var out []types.ToolStat
	for rows.Next() {
		var stat types.ToolStat
		if err := rows.Scan(&stat.ToolName, &stat.Count, &stat.AvgDurationMs, &stat.MaxDurationMs); err != nil {
			return nil, wrapStoreErr("scan_tool_stat", err)
		}
		out = append(out, stat)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// PurgeFilter selects which events Purge removes.
type PurgeFilter struct {
	OlderThan time.Duration // zero = no age filter
	ByAgent   string        // empty = no filter
	All       bool
}

// Purge deletes rows matching filter and returns the count deleted.
func (s *Store) Purge(filter PurgeFilter) (int64, error) {
	var res sql.Result
	var err error
	switch {
	case filter.All:
		res, err = s.db.Exec(`DELETE FROM events`)
	case filter.OlderThan > 0:
		cutoff := dbutil.FormatTime(time.Now().Add(-filter.OlderThan))
		res, err = s.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff)
	case filter.ByAgent != "":
		res, err = s.db.Exec(`DELETE FROM events WHERE agent_name = ?`, filter.ByAgent)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, wrapStoreErr("purge", err)
	}
	return res.RowsAffected()
}
