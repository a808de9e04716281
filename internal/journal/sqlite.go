package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite appends journal entries to a single table in a local file.
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
	path   string
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "matchdesk-journal.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sync_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		slug TEXT NOT NULL,
		seq INTEGER NOT NULL,
		event TEXT NOT NULL,
		payload BLOB NOT NULL,
		recorded_at TEXT NOT NULL
	)`); err != nil {
		return nil, multierr.Append(fmt.Errorf("create journal table: %w", err), db.Close())
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS sync_journal_session ON sync_journal(session_id, seq)`); err != nil {
		return nil, multierr.Append(fmt.Errorf("create journal index: %w", err), db.Close())
	}
	insert, err := db.Prepare(`INSERT INTO sync_journal(session_id, slug, seq, event, payload, recorded_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("prepare insert: %w", err), db.Close())
	}
	return &SQLite{db: db, insert: insert, path: path}, nil
}

func (s *SQLite) Append(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	payload := e.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := s.insert.ExecContext(ctx, e.SessionID, e.Slug, e.Seq, string(e.Event), payload, e.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *SQLite) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, slug, seq, event, payload, recorded_at
		FROM sync_journal WHERE session_id = ? ORDER BY seq, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ev string
			at string
		)
		if err := rows.Scan(&e.SessionID, &e.Slug, &e.Seq, &ev, &e.Payload, &at); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Event = Event(ev)
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return multierr.Append(s.insert.Close(), s.db.Close())
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }
