// Package mergequeue is the durable FIFO backlog of branch integrations
// (spec §4.4 "Queue operations"). Dequeue order is the monotonic insert
// id, never enqueued_at, since enqueued_at may carry clock skew across
// hosts (spec §5, P6).
package mergequeue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/pkg/types"
)

type Store struct {
	db *dbutil.DB
}

var migrations = []dbutil.Migration{
	{
		Version: 1,
		SQL: `
			CREATE TABLE merge_queue (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				branch_name   TEXT NOT NULL UNIQUE,
				task_id       TEXT NOT NULL DEFAULT '',
				agent_name    TEXT NOT NULL DEFAULT '',
				files         TEXT NOT NULL DEFAULT '[]',
				status        TEXT NOT NULL DEFAULT 'pending',
				resolved_tier TEXT,
				enqueued_at   TEXT NOT NULL
			);
			CREATE INDEX idx_merge_queue_status ON merge_queue(status, id);
		`,
	},
}

func Open(path string) (*Store, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate merge queue: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("mergequeue %s: %w", op, err)
}

var ErrNotFound = errors.New("mergequeue: entry not found")

// Enqueue inserts a new entry with status pending and EnqueuedAt
// defaulted to now.
func (s *Store) Enqueue(entry *types.MergeEntry) error {
	if entry.Status == "" {
		entry.Status = types.MergePending
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	filesJSON, err := json.Marshal(entry.Files)
	if err != nil {
		return wrapStoreErr("enqueue", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO merge_queue (branch_name, task_id, agent_name, files, status, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.BranchName, entry.TaskID, entry.AgentName, string(filesJSON), string(entry.Status), dbutil.FormatTime(entry.EnqueuedAt))
	if err != nil {
		return wrapStoreErr("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrapStoreErr("enqueue", err)
	}
	entry.ID = id
	return nil
}

func scanEntry(row interface{ Scan(...any) error }) (*types.MergeEntry, error) {
	var e types.MergeEntry
	var filesJSON, status, enqueuedAt string
	var resolvedTier sql.NullString

	if err := row.Scan(&e.ID, &e.BranchName, &e.TaskID, &e.AgentName, &filesJSON, &status, &resolvedTier, &enqueuedAt); err != nil {
		return nil, err
	}

	e.Status = types.MergeStatus(status)
	if err := json.Unmarshal([]byte(filesJSON), &e.Files); err != nil {
		return nil, err
	}
	if resolvedTier.Valid {
		tier := types.MergeTier(resolvedTier.String)
		e.ResolvedTier = &tier
	}
	if t, err := dbutil.ParseTime(enqueuedAt); err == nil {
		e.EnqueuedAt = t
	}
	return &e, nil
}

const entryColumns = ` id, branch_name, task_id, agent_name, files, status, resolved_tier, enqueued_at `

// Dequeue pops the FIFO-head pending entry (lowest id) and marks it
// merging in the same transaction, so two resolver loops never race the
// same entry.
func (s *Store) Dequeue() (*types.MergeEntry, error) {
	var entry *types.MergeEntry
	err := s.db.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT`+entryColumns+`FROM merge_queue WHERE status = 'pending' ORDER BY id ASC LIMIT 1`)
		e, err := scanEntry(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE merge_queue SET status = 'merging' WHERE id = ?`, e.ID); err != nil {
			return err
		}
		e.Status = types.MergeMerging
		entry = e
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("dequeue", err)
	}
	return entry, nil
}

// Peek returns the FIFO-head pending entry without claiming it.
func (s *Store) Peek() (*types.MergeEntry, error) {
	row := s.db.QueryRow(`SELECT` + entryColumns + `FROM merge_queue WHERE status = 'pending' ORDER BY id ASC LIMIT 1`)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("peek", err)
	}
	return e, nil
}

// List returns entries filtered by status, or every entry if status is
// empty, ordered by insert id ascending.
func (s *Store) List(status types.MergeStatus) ([]*types.MergeEntry, error) {
	query := `SELECT` + entryColumns + `FROM merge_queue`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapStoreErr("list", err)
	}
	defer rows.Close()

	var out []*types.MergeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrapStoreErr("scan", err)
		}
		out = append(out, e)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// UpdateStatus sets status and, when resolved, the tier that resolved
// the entry. tier may be nil when the status is not a resolved outcome.
func (s *Store) UpdateStatus(branchName string, status types.MergeStatus, tier *types.MergeTier) error {
	var tierVal sql.NullString
	if tier != nil {
		tierVal = sql.NullString{String: string(*tier), Valid: true}
	}
	res, err := s.db.Exec(`UPDATE merge_queue SET status = ?, resolved_tier = ? WHERE branch_name = ?`,
		string(status), tierVal, branchName)
	if err != nil {
		return wrapStoreErr("update_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("update_status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
