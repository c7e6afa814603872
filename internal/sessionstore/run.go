package sessionstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/internal/errs"
	"github.com/dkremnev/overstory/pkg/types"
)

// ErrRunNotFound is returned when a run_id does not exist.
var ErrRunNotFound = errors.New("run not found")

// ErrActiveRunExists is returned by CreateRun-adjacent callers that rely
// on the "at most one active run" invariant; the store itself does not
// enforce uniqueness beyond what GetActiveRun reports, mirroring the
// spec's "at most one" phrasing as a query contract, not a constraint.
var ErrActiveRunExists = errors.New("an active run already exists")

// CreateRun inserts a new run row in the active status.
func (s *Store) CreateRun(run *types.Run) error {
	if run.Status == "" {
		run.Status = types.RunActive
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, coordinator_agent, status, agent_count, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.CoordinatorAgent, string(run.Status), run.AgentCount, dbutil.FormatTime(run.StartedAt), nil)
	return wrapStoreErr("create_run", err)
}

func scanRun(row interface{ Scan(...any) error }) (*types.Run, error) {
	var run types.Run
	var status, startedAt string
	var completedAt sql.NullString

	if err := row.Scan(&run.RunID, &run.CoordinatorAgent, &status, &run.AgentCount, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	run.Status = types.RunStatus(status)
	if t, err := dbutil.ParseTime(startedAt); err == nil {
		run.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := dbutil.ParseTime(completedAt.String); err == nil {
			run.CompletedAt = &t
		}
	}
	return &run, nil
}

const runColumns = ` run_id, coordinator_agent, status, agent_count, started_at, completed_at `

// GetRun returns the run with the given id.
func (s *Store) GetRun(runID string) (*types.Run, error) {
	row := s.db.QueryRow(`SELECT`+runColumns+`FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, wrapStoreErr("get_run", err)
	}
	return run, nil
}

// GetActiveRun returns the single active run, or nil if none is active.
func (s *Store) GetActiveRun() (*types.Run, error) {
	row := s.db.QueryRow(`SELECT`+runColumns+`FROM runs WHERE status = 'active' ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get_active_run", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 means
// unlimited.
func (s *Store) ListRuns(limit int) ([]*types.Run, error) {
	query := `SELECT` + runColumns + `FROM runs ORDER BY started_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, wrapStoreErr("list_runs", err)
	}
	defer rows.Close()

	var out []*types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, wrapStoreErr("scan_run", err)
		}
		out = append(out, run)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// IncrementAgentCount bumps a run's agent_count by one.
func (s *Store) IncrementAgentCount(runID string) error {
	res, err := s.db.Exec(`UPDATE runs SET agent_count = agent_count + 1 WHERE run_id = ?`, runID)
	if err != nil {
		return wrapStoreErr("increment_agent_count", err)
	}
	return checkRunAffected(res)
}

func checkRunAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("rows_affected", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CompleteRun atomically sets status=completed and completed_at=now.
func (s *Store) CompleteRun(runID string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, completed_at = ? WHERE run_id = ?
	`, string(types.RunCompleted), dbutil.FormatTime(time.Now()), runID)
	if err != nil {
		return errs.StoreWrap("complete run", err).With("run_id", runID)
	}
	return checkRunAffected(res)
}
