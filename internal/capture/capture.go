// Package capture journals finished wire transactions into a SQLite file
// so a bus session can be inspected after the fact. The store implements
// bpio.Recorder; journal failures are logged, never surfaced, so the
// recorder cannot fail a transaction.
package capture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/hexliner/gobpio/internal/bpio"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newEntryID generates a ULID string for journal rows. Monotonic entropy
// keeps rows from the same millisecond sortable in insert order.
func newEntryID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Store owns the SQLite journal for one capture file.
type Store struct {
	db      *sql.DB
	path    string
	session string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			opened_at INTEGER NOT NULL,
			transport TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			started_at INTEGER NOT NULL,
			duration_us INTEGER NOT NULL,
			request_kind TEXT NOT NULL,
			request_bytes BLOB,
			response_kind TEXT NOT NULL,
			response_bytes BLOB,
			status TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_session ON transactions(session_id, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_started ON transactions(started_at);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// BeginSession opens a journal session tagged with the transport it
// records. Transactions recorded afterwards land under its id.
func (s *Store) BeginSession(ctx context.Context, transport string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, opened_at, transport) VALUES(?,?,?)`,
		id, time.Now().UnixMilli(), transport)
	if err != nil {
		return "", err
	}
	s.session = id
	return id, nil
}

// RecordTransaction implements bpio.Recorder, appending one journal row
// per finished exchange.
func (s *Store) RecordTransaction(tx bpio.Transaction) {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO transactions(id, session_id, started_at, duration_us,
			request_kind, request_bytes, response_kind, response_bytes,
			status, detail)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		newEntryID(), s.session, tx.StartedAt.UnixMilli(), tx.Duration.Microseconds(),
		tx.RequestKind.String(), tx.RequestBytes,
		tx.ResponseKind.String(), tx.ResponseBytes,
		tx.Status, tx.Detail)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("capture: journal append failed")
	}
}

// Entry is one journaled transaction.
type Entry struct {
	ID            string
	SessionID     string
	StartedAt     time.Time
	Duration      time.Duration
	RequestKind   string
	RequestBytes  []byte
	ResponseKind  string
	ResponseBytes []byte
	Status        string
	Detail        string
}

// Recent returns the newest limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, started_at, duration_us,
			request_kind, request_bytes, response_kind, response_bytes,
			status, detail
		FROM transactions
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			started int64
			durUs   int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &started, &durUs,
			&e.RequestKind, &e.RequestBytes, &e.ResponseKind, &e.ResponseBytes,
			&e.Status, &e.Detail); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started)
		e.Duration = time.Duration(durUs) * time.Microsecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SessionSummary rolls one session up: when it opened, what transport it
// recorded and how its transactions ended.
type SessionSummary struct {
	ID        string
	OpenedAt  time.Time
	Transport string
	Total     int
	ByStatus  map[string]int
}

// Summary reports every session in the journal, oldest first.
func (s *Store) Summary(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.opened_at, s.transport, t.status, COUNT(t.id)
		FROM sessions s
		LEFT JOIN transactions t ON t.session_id = s.id
		GROUP BY s.id, t.status
		ORDER BY s.opened_at ASC, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		summaries []SessionSummary
		index     = make(map[string]int)
	)
	for rows.Next() {
		var (
			id        string
			opened    int64
			transport string
			status    sql.NullString
			count     int
		)
		if err := rows.Scan(&id, &opened, &transport, &status, &count); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			i = len(summaries)
			index[id] = i
			summaries = append(summaries, SessionSummary{
				ID:        id,
				OpenedAt:  time.UnixMilli(opened),
				Transport: transport,
				ByStatus:  make(map[string]int),
			})
		}
		if status.Valid {
			summaries[i].ByStatus[status.String] += count
			summaries[i].Total += count
		}
	}
	return summaries, rows.Err()
}
