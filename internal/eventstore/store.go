// Package eventstore is the insert-only append log of structured events
// plus in-store tool correlation (spec §4.2). It owns events.db
// exclusively, including the metrics and token-snapshot sibling tables.
// Grounded in the teacher's internal/state schema-migration pattern,
// generalized from session-scoped rows to the spec's StoredEvent model.
package eventstore

import (
	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/internal/errs"
)

// Store is the event store. One Store wraps one events.db file.
type Store struct {
	db *dbutil.DB
}

var migrations = []dbutil.Migration{
	{Version: 1, SQL: schemaV1Events},
	{Version: 2, SQL: schemaV2Metrics},
}

const schemaV1Events = `
CREATE TABLE IF NOT EXISTS events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT,
	agent_name       TEXT NOT NULL,
	session_id       TEXT,
	event_kind       TEXT NOT NULL,
	tool_name        TEXT,
	tool_args        TEXT,
	tool_duration_ms INTEGER,
	level            TEXT NOT NULL DEFAULT 'info',
	payload          TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_agent_created ON events(agent_name, created_at);
CREATE INDEX IF NOT EXISTS idx_events_run_created ON events(run_id, created_at);
CREATE INDEX IF NOT EXISTS idx_events_kind_created ON events(event_kind, created_at);
CREATE INDEX IF NOT EXISTS idx_events_tool_agent ON events(tool_name, agent_name);
CREATE INDEX IF NOT EXISTS idx_events_errors ON events(level) WHERE level = 'error';
`

const schemaV2Metrics = `
CREATE TABLE IF NOT EXISTS session_metrics (
	agent_name  TEXT NOT NULL,
	bead_id     TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	cost_usd    REAL NOT NULL DEFAULT 0.0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	tool_calls  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (agent_name, bead_id)
);

CREATE TABLE IF NOT EXISTS token_snapshots (
	agent_name    TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (agent_name, created_at)
);
`

// Open opens (and migrates) the event store at path.
func Open(path string) (*Store, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, errs.StoreWrap("open event store", err).With("path", path)
	}
	if err := db.Migrate(migrations); err != nil {
		db.Close()
		return nil, errs.StoreWrap("migrate event store", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.StoreWrap("eventstore: "+op, err)
}
