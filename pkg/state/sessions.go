// Package state keeps a ledger of executed engine sessions.
package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/storedb"
)

const sessionsModule = "sessions"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Session is one ExecuteString run.
type Session struct {
	ID          string        `json:"id"`
	Interpreter string        `json:"interpreter"`
	CodeDigest  string        `json:"code_digest"`
	Code        string        `json:"code"`
	ExitCode    int           `json:"exit_code"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Recorder receives finished sessions.
type Recorder interface {
	Record(s Session) error
}

// Digest returns the hex SHA-256 of code.
func Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// DefaultPath is ~/.cache/unipy/sessions.db.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "unipy", "sessions.db")
}

// Store persists sessions in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the ledger at path, or DefaultPath when path is empty.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	db, err := storedb.Open(storedb.OpenOptions{
		Path:       path,
		Module:     sessionsModule,
		Migrations: sessionMigrations(),
	})
	if err != nil {
		return nil, errx.Wrap(ErrOpenStore, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func sessionMigrations() []storedb.Migration {
	return []storedb.Migration{
		{
			Version: 1,
			Name:    "create_sessions",
			SQL: `
CREATE TABLE IF NOT EXISTS sessions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL,
  interpreter TEXT NOT NULL,
  code_digest TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  exit_code INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_id ON sessions(id);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
`,
		},
	}
}

// Record appends a session. An engine session can run many times, so IDs
// are not unique in the ledger.
func (s *Store) Record(sess Session) error {
	if sess.CodeDigest == "" {
		sess.CodeDigest = Digest(sess.Code)
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO sessions(id, interpreter, code_digest, code, exit_code, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Interpreter, sess.CodeDigest, sess.Code, sess.ExitCode,
		sess.StartedAt.UTC().Format(timeLayout), sess.Duration.Milliseconds())
	if err != nil {
		return errx.Wrap(ErrSaveSession, err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the result; <= 0 returns everything.
	Limit int
	// FailedOnly keeps runs with a non-zero exit code.
	FailedOnly bool
}

// List returns the most recent runs first. Filters apply before the limit.
func (s *Store) List(opts ListOptions) ([]Session, error) {
	query := `SELECT id, interpreter, code_digest, code, exit_code, started_at, duration_ms
FROM sessions`
	if opts.FailedOnly {
		query += ` WHERE exit_code != 0`
	}
	query += ` ORDER BY started_at DESC, seq DESC`
	var args []any
	limit := opts.Limit
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errx.Wrap(ErrReadSession, err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.Wrap(ErrReadSession, err)
	}
	return out, nil
}

// Get returns the latest run recorded under id.
func (s *Store) Get(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, interpreter, code_digest, code, exit_code, started_at, duration_ms
FROM sessions WHERE id = ? ORDER BY started_at DESC, seq DESC LIMIT 1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.With(ErrSessionNotFound, ": %q", id)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess       Session
		startedAt  string
		durationMS int64
	)
	if err := row.Scan(&sess.ID, &sess.Interpreter, &sess.CodeDigest, &sess.Code, &sess.ExitCode, &startedAt, &durationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, err
		}
		return sess, errx.Wrap(ErrReadSession, err)
	}
	ts, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return sess, errx.Wrap(ErrReadSession, err)
	}
	sess.StartedAt = ts
	sess.Duration = time.Duration(durationMS) * time.Millisecond
	return sess, nil
}
