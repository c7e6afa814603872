// Package mailstore is the durable inter-agent mail table (spec §4.3
// store operations). It knows nothing about group addresses or reply
// threading — that logic lives one layer up in internal/mail.
package mailstore

import (
	"fmt"

	"github.com/dkremnev/overstory/internal/dbutil"
)

type Store struct {
	db *dbutil.DB
}

var migrations = []dbutil.Migration{
	{
		Version: 1,
		SQL: `
			CREATE TABLE mail (
				id         TEXT PRIMARY KEY,
				from_agent TEXT NOT NULL,
				to_agent   TEXT NOT NULL,
				subject    TEXT NOT NULL DEFAULT '',
				body       TEXT NOT NULL DEFAULT '',
				mail_type  TEXT NOT NULL,
				priority   TEXT NOT NULL DEFAULT 'normal',
				thread_id  TEXT,
				payload    TEXT,
				is_read    INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			);
			CREATE INDEX idx_mail_to_read ON mail(to_agent, is_read);
			CREATE INDEX idx_mail_thread ON mail(thread_id);
			CREATE INDEX idx_mail_created ON mail(created_at, id);
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
		return nil, fmt.Errorf("migrate mail store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("mailstore %s: %w", op, err)
}
