package mailstore

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/dkremnev/overstory/internal/dbutil"
	"github.com/dkremnev/overstory/pkg/types"
)

var ErrNotFound = errors.New("mailstore: message not found")

// Insert auto-generates id and CreatedAt if missing, then writes the row.
func (s *Store) Insert(m *types.MailMessage) error {
	if m.ID == "" {
		id, err := newID()
		if err != nil {
			return wrapStoreErr("insert", err)
		}
		m.ID = id
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.Priority == "" {
		m.Priority = types.PriorityNormal
	}

	_, err := s.db.Exec(`
		INSERT INTO mail (id, from_agent, to_agent, subject, body, mail_type, priority,
			thread_id, payload, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.From, m.To, m.Subject, m.Body, string(m.Type), string(m.Priority),
		nullableStringPtr(m.ThreadID), nullableStringPtr(m.Payload), boolToInt(m.Read),
		dbutil.FormatTime(m.CreatedAt),
	)
	return wrapStoreErr("insert", err)
}

func nullableStringPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const mailColumns = `
	id, from_agent, to_agent, subject, body, mail_type, priority,
	thread_id, payload, is_read, created_at
`

func scanMail(row interface{ Scan(...any) error }) (*types.MailMessage, error) {
	var m types.MailMessage
	var threadID, payload sql.NullString
	var mailType, priority, createdAt string
	var isRead int

	if err := row.Scan(&m.ID, &m.From, &m.To, &m.Subject, &m.Body, &mailType, &priority,
		&threadID, &payload, &isRead, &createdAt); err != nil {
		return nil, err
	}

	m.Type = types.MailType(mailType)
	m.Priority = types.MailPriority(priority)
	m.Read = isRead != 0
	if threadID.Valid {
		v := threadID.String
		m.ThreadID = &v
	}
	if payload.Valid {
		v := payload.String
		m.Payload = &v
	}
	if t, err := dbutil.ParseTime(createdAt); err == nil {
		m.CreatedAt = t
	}
	return &m, nil
}

func (s *Store) queryMail(query string, args ...any) ([]*types.MailMessage, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapStoreErr("query", err)
	}
	defer rows.Close()

	var out []*types.MailMessage
	for rows.Next() {
		m, err := scanMail(rows)
		if err != nil {
			return nil, wrapStoreErr("scan", err)
		}
		out = append(out, m)
	}
	return out, wrapStoreErr("rows", rows.Err())
}

// GetUnread returns agent's unread mail ordered by createdAt ascending,
// ties broken by id (spec §5 concurrency note).
func (s *Store) GetUnread(agent string) ([]*types.MailMessage, error) {
	return s.queryMail(`SELECT`+mailColumns+`FROM mail WHERE to_agent = ? AND is_read = 0 ORDER BY created_at ASC, id ASC`, agent)
}

// GetAll applies a dynamic filter over from/to/unread/limit.
func (s *Store) GetAll(filter types.MailFilter) ([]*types.MailMessage, error) {
	query := `SELECT` + mailColumns + `FROM mail WHERE 1=1`
	var args []any

	if filter.From != "" {
		query += ` AND from_agent = ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND to_agent = ?`
		args = append(args, filter.To)
	}
	if filter.Unread {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	return s.queryMail(query, args...)
}

// GetByID fetches a single message or ErrNotFound.
func (s *Store) GetByID(id string) (*types.MailMessage, error) {
	row := s.db.QueryRow(`SELECT`+mailColumns+`FROM mail WHERE id = ?`, id)
	m, err := scanMail(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapStoreErr("get_by_id", err)
	}
	return m, nil
}

// GetByThread returns every message in a conversation, oldest first.
func (s *Store) GetByThread(threadID string) ([]*types.MailMessage, error) {
	return s.queryMail(`SELECT`+mailColumns+`FROM mail WHERE thread_id = ? OR id = ? ORDER BY created_at ASC, id ASC`, threadID, threadID)
}

// CheckAndMark fetches agent's unread mail and marks every returned
// message read inside a single transaction, so a concurrent Insert or
// another Check can't observe a message as unread after it's already
// been handed back once (spec §4.3 "check(agent): atomic
// read-and-mark").
func (s *Store) CheckAndMark(agent string) ([]*types.MailMessage, error) {
	var out []*types.MailMessage
	err := s.db.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT`+mailColumns+`FROM mail WHERE to_agent = ? AND is_read = 0 ORDER BY created_at ASC, id ASC`, agent)
		if err != nil {
			return wrapStoreErr("check_and_mark query", err)
		}
		for rows.Next() {
			m, err := scanMail(rows)
			if err != nil {
				rows.Close()
				return wrapStoreErr("check_and_mark scan", err)
			}
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return wrapStoreErr("check_and_mark rows", err)
		}
		rows.Close()

		for _, m := range out {
			if _, err := tx.Exec(`UPDATE mail SET is_read = 1 WHERE id = ?`, m.ID); err != nil {
				return wrapStoreErr("check_and_mark mark", err)
			}
			m.Read = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flips the read flag. Idempotent.
func (s *Store) MarkRead(id string) error {
	res, err := s.db.Exec(`UPDATE mail SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return wrapStoreErr("mark_read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("mark_read", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeFilter selects which mail rows Purge removes.
type PurgeFilter struct {
	OlderThan time.Duration
	ByAgent   string
	All       bool
}

// Purge deletes rows matching filter and returns the count deleted.
func (s *Store) Purge(filter PurgeFilter) (int64, error) {
	var res sql.Result
	var err error
	switch {
	case filter.All:
		res, err = s.db.Exec(`DELETE FROM mail`)
	case filter.OlderThan > 0:
		cutoff := dbutil.FormatTime(time.Now().Add(-filter.OlderThan))
		res, err = s.db.Exec(`DELETE FROM mail WHERE created_at < ?`, cutoff)
	case filter.ByAgent != "":
		res, err = s.db.Exec(`DELETE FROM mail WHERE to_agent = ? OR from_agent = ?`, filter.ByAgent, filter.ByAgent)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, wrapStoreErr("purge", err)
	}
	return res.RowsAffected()
}
