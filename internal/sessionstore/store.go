// Package sessionstore is the durable, concurrent-safe record of every
// agent's lifecycle plus grouping into runs (spec §4.1). It owns the
// sessions.db file exclusively; no other store reads or writes its
// tables. Grounded in the teacher's internal/state package (db.go,
// session.go, recovery.go), generalized from Alphie's session/agent/task
// model to the spec's AgentSession/Run model.
package sessionstore

import (
	"fmt"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/internal/errs"
)

// Store is the session/run store. One Store wraps one sessions.db file.
type Store struct {
	db *dbutil.DB
}

var migrations = []dbutil.Migration{
	{Version: 1, SQL: schemaV1Sessions},
	{Version: 2, SQL: schemaV2Runs},
	{Version: 3, SQL: schemaV3EscalationColumns},
}

const schemaV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	agent_name     TEXT PRIMARY KEY,
	capability     TEXT NOT NULL,
	worktree_path  TEXT NOT NULL,
	branch_name    TEXT NOT NULL,
	task_id        TEXT NOT NULL,
	pane_name      TEXT NOT NULL,
	state          TEXT NOT NULL,
	pid            INTEGER,
	parent_agent   TEXT,
	depth          INTEGER NOT NULL DEFAULT 0,
	started_at     TEXT NOT NULL,
	last_activity  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`

const schemaV2Runs = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	coordinator_agent TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	agent_count       INTEGER NOT NULL DEFAULT 0,
	started_at        TEXT NOT NULL,
	completed_at      TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// schemaV3EscalationColumns adds the run_id/escalation columns that the
// original flat schema lacked. Idempotent column-add per spec "Schema
// evolution": SQLite has no IF NOT EXISTS for ALTER TABLE ADD COLUMN, so
// a column-already-exists failure is avoided by running this migration
// exactly once via schema_version bookkeeping (dbutil.Migrate).
const schemaV3EscalationColumns = `
ALTER TABLE sessions ADD COLUMN run_id TEXT;
ALTER TABLE sessions ADD COLUMN stalled_since TEXT;
ALTER TABLE sessions ADD COLUMN escalation_level INTEGER NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS idx_sessions_run_id ON sessions(run_id);
`

// Open opens the session store at path, creating and migrating the
// schema as needed, and imports any legacy flat-file rows on first open.
// The returned bool reports whether a legacy import happened, so the
// caller can log it exactly once.
func Open(path string, legacyFlatFile string) (*Store, bool, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, false, errs.StoreWrap("open session store", err).With("path", path)
	}

	freshBeforeMigration := isFreshSchema(db)

	if err := db.Migrate(migrations); err != nil {
		db.Close()
		return nil, false, errs.StoreWrap("migrate session store", err)
	}

	s := &Store{db: db}

	migrated := false
	if freshBeforeMigration && legacyFlatFile != "" {
		n, err := s.importLegacyFlatFile(legacyFlatFile)
		if err != nil {
			db.Close()
			return nil, false, errs.StoreWrap("import legacy session file", err)
		}
		migrated = n > 0
	}

	return s, migrated, nil
}

func isFreshSchema(db *dbutil.DB) bool {
	var count int
	row := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sessions'`)
	if err := row.Scan(&count); err != nil {
		return true
	}
	if count == 0 {
		return true
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&rows); err != nil {
		return true
	}
	return rows == 0
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.StoreWrap(fmt.Sprintf("sessionstore: %s", op), err)
}
