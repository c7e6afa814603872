package sessionstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/internal/errs"
	"github.com/dkremnev/overstory/pkg/types"
)

// ErrNotFound is returned by GetByName when no session has the given
// agent name.
var ErrNotFound = errors.New("session not found")

// Upsert inserts or replaces a session by agent_name. Monotonicity of
// EscalationLevel is enforced by the watchdog caller, not here — the
// store writes the field exactly as given (spec §4.1).
func (s *Store) Upsert(sess *types.AgentSession) error {
	if err := sess.Validate(); err != nil {
		return errs.ValidationWrap("invalid session", err).With("agent_name", sess.AgentName)
	}

	var pid sql.NullInt64
	if sess.PID != nil {
		pid = sql.NullInt64{Int64: int64(*sess.PID), Valid: true}
	}
	var stalledSince sql.NullString
	if sess.StalledSince != nil {
		stalledSince = sql.NullString{String: dbutil.FormatTime(*sess.StalledSince), Valid: true}
	}
	var runID sql.NullString
	if sess.RunID != "" {
		runID = sql.NullString{String: sess.RunID, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (
			agent_name, capability, worktree_path, branch_name, task_id, pane_name,
			state, pid, parent_agent, depth, run_id, started_at, last_activity,
			stalled_since, escalation_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_name) DO UPDATE SET
			capability=excluded.capability,
			worktree_path=excluded.worktree_path,
			branch_name=excluded.branch_name,
			task_id=excluded.task_id,
			pane_name=excluded.pane_name,
			state=excluded.state,
			pid=excluded.pid,
			parent_agent=excluded.parent_agent,
			depth=excluded.depth,
			run_id=excluded.run_id,
			last_activity=excluded.last_activity,
			stalled_since=excluded.stalled_since,
			escalation_level=excluded.escalation_level
	`,
		sess.AgentName, string(sess.Capability), sess.WorktreePath, sess.BranchName, sess.TaskID, sess.PaneName,
		string(sess.State), pid, nullableString(sess.ParentAgent), sess.Depth, runID,
		dbutil.FormatTime(sess.StartedAt), dbutil.FormatTime(sess.LastActivity),
		stalledSince, sess.EscalationLevel,
	)
	return wrapStoreErr("upsert", err)
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

const sessionColumns = `
	agent_name, capability, worktree_path, branch_name, task_id, pane_name,
	state, pid, parent_agent, depth, run_id, started_at, last_activity,
	stalled_since, escalation_level
`

func scanSession(row interface{ Scan(...any) error }) (*types.AgentSession, error) {
	var sess types.AgentSession
	var capability, state string
	var pid sql.NullInt64
	var parentAgent, runID, stalledSince sql.NullString
	var startedAt, lastActivity string

	if err := row.Scan(
		&sess.AgentName, &capability, &sess.WorktreePath, &sess.BranchName, &sess.TaskID, &sess.PaneName,
		&state, &pid, &parentAgent, &sess.Depth, &runID, &startedAt, &lastActivity,
		&stalledSince, &sess.EscalationLevel,
	); err != nil {
		return nil, err
	}

	sess.Capability = types.Capability(capability)
	sess.State = types.SessionState(state)
	if pid.Valid {
		v := int(pid.Int64)
		sess.PID = &v
	}
	if parentAgent.Valid {
		sess.ParentAgent = parentAgent.String
	}
	if runID.Valid {
		sess.RunID = runID.String
	}
	if t, err := dbutil.ParseTime(startedAt); err == nil {
		sess.StartedAt = t
	}
	if t, err := dbutil.ParseTime(lastActivity); err == nil {
		sess.LastActivity = t
	}
	if stalledSince.Valid {
		if t, err := dbutil.ParseTime(stalledSince.String); err == nil {
			sess.StalledSince = &t
		}
	}
	return &sess, nil
}

// GetByName returns the session with the given agent name, or ErrNotFound.
func (s *Store) GetByName(name string) (*types.AgentSession, error) {
	row := s.db.QueryRow(`SELECT`+sessionColumns+`FROM sessions WHERE agent_name = ?`, name)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreErr("get_by_name", err)
	}
	return sess, nil
}

func (s *Store) queryAll(query string, args ...any) ([]*types.AgentSession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapStoreErr("query", err)
	}
	defer rows.Close()

	var out []*types.AgentSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, wrapStoreErr("scan", err)
		}
		out = append(out, sess)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// GetActive returns every session whose state is booting, working, or
// stalled (i.e. not yet terminal).
func (s *Store) GetActive() ([]*types.AgentSession, error) {
	return s.queryAll(`SELECT` + sessionColumns + `FROM sessions WHERE state IN ('booting','working','stalled') ORDER BY started_at ASC`)
}

// GetAll returns every session row.
func (s *Store) GetAll() ([]*types.AgentSession, error) {
	return s.queryAll(`SELECT` + sessionColumns + `FROM sessions ORDER BY started_at ASC`)
}

// GetByRun returns every session belonging to the given run.
func (s *Store) GetByRun(runID string) ([]*types.AgentSession, error) {
	return s.queryAll(`SELECT`+sessionColumns+`FROM sessions WHERE run_id = ? ORDER BY started_at ASC`, runID)
}

// ErrIllegalTransition is returned by UpdateState when the requested
// transition is not in the forward-only set (spec invariant I2).
var ErrIllegalTransition = errors.New("illegal session state transition")

// UpdateState applies a forward-only state transition. The current row
// is re-read inside the same transaction so this is safe against a
// concurrent writer (spec §5 "guarded by the forward-only rule, which
// re-reads the current row inside the same transaction"). Illegal
// transitions are rejected with ErrIllegalTransition wrapped as a
// LifecycleError, never silently ignored (spec §4.1).
func (s *Store) UpdateState(name string, next types.SessionState) error {
	err := s.db.Transaction(func(tx *sql.Tx) error {
		var current string
		row := tx.QueryRow(`SELECT state FROM sessions WHERE agent_name = ?`, name)
		if err := row.Scan(&current); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}

		from := types.SessionState(current)
		if !types.CanTransition(from, next) {
			return errs.LifecycleWrap("illegal state transition", ErrIllegalTransition).
				With("agent_name", name).With("from", string(from)).With("to", string(next))
		}

		var stalledSince sql.NullString
		if next == types.SessionStalled {
			stalledSince = sql.NullString{String: dbutil.FormatTime(time.Now()), Valid: true}
		}
		_, err := tx.Exec(`
			UPDATE sessions SET state = ?, stalled_since = ?, last_activity = ?
			WHERE agent_name = ?
		`, string(next), stalledSince, dbutil.FormatTime(time.Now()), name)
		return err
	})

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		if _, ok := errs.As(err, errs.KindLifecycle); ok {
			return err
		}
		return wrapStoreErr("update_state", err)
	}
	return nil
}

// UpdateLastActivity touches last_activity to now.
func (s *Store) UpdateLastActivity(name string) error {
	res, err := s.db.Exec(`UPDATE sessions SET last_activity = ? WHERE agent_name = ?`, dbutil.FormatTime(time.Now()), name)
	if err != nil {
		return wrapStoreErr("update_last_activity", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("rows_affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ErrEscalationDecrease is returned by UpdateEscalation when level would
// decrease below the session's current level (spec invariant P1 / I3).
var ErrEscalationDecrease = errors.New("escalation level may not decrease")

// UpdateEscalation sets the escalation level and stalled_since, rejecting
// any attempt to decrease the level on a non-terminal session.
func (s *Store) UpdateEscalation(name string, level int, stalledSince *time.Time) error {
	return s.db.Transaction(func(tx *sql.Tx) error {
		var current int
		var state string
		row := tx.QueryRow(`SELECT escalation_level, state FROM sessions WHERE agent_name = ?`, name)
		if err := row.Scan(&current, &state); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}

		terminal := types.SessionState(state).Terminal()
		if !terminal && level < current {
			return errs.LifecycleWrap("escalation level decrease rejected", ErrEscalationDecrease).
				With("agent_name", name).With("current", current).With("requested", level)
		}

		var stalledVal sql.NullString
		if stalledSince != nil {
			stalledVal = sql.NullString{String: dbutil.FormatTime(*stalledSince), Valid: true}
		}
		_, err := tx.Exec(`UPDATE sessions SET escalation_level = ?, stalled_since = ? WHERE agent_name = ?`,
			level, stalledVal, name)
		return err
	})
}

// Remove deletes a single session row by agent name.
func (s *Store) Remove(name string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE agent_name = ?`, name)
	if err != nil {
		return wrapStoreErr("remove", err)
	}
	return checkAffected(res)
}

// PurgeFilter selects which sessions Purge removes.
type PurgeFilter struct {
	ByState types.SessionState // empty = no filter
	ByAgent string             // empty = no filter
	All     bool
}

// Purge deletes rows matching filter and returns the count deleted.
func (s *Store) Purge(filter PurgeFilter) (int64, error) {
	var res sql.Result
	var err error
	switch {
	case filter.All:
		res, err = s.db.Exec(`DELETE FROM sessions`)
	case filter.ByState != "":
		res, err = s.db.Exec(`DELETE FROM sessions WHERE state = ?`, string(filter.ByState))
	case filter.ByAgent != "":
		res, err = s.db.Exec(`DELETE FROM sessions WHERE agent_name = ?`, filter.ByAgent)
	default:
		return 0, errs.Validation("purge requires ByState, ByAgent, or All")
	}
	if err != nil {
		return 0, wrapStoreErr("purge", err)
	}
	return res.RowsAffected()
}
