package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    pid         INTEGER PRIMARY KEY,
    file        TEXT NOT NULL UNIQUE,
    created_at  INTEGER NOT NULL,
    trials      INTEGER NOT NULL,
    correct     INTEGER NOT NULL,
    digest      TEXT NOT NULL,
    partial     INTEGER NOT NULL DEFAULT 0
);
`

// ErrNotFound is returned by Lookup for files the ledger does not know.
var ErrNotFound = errors.New("not in ledger")

// Entry is one ledger row.
type Entry struct {
	PID       int       `json:"pid"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"created_at"`
	Trials    int       `json:"trials"`
	Correct   int       `json:"correct"`
	Digest    string    `json:"digest"`
	Partial   bool      `json:"partial"`
}

type ledger struct {
	db *sql.DB
}

func openLedger(path string) (*ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &ledger{db: db}, nil
}

func (l *ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *ledger) insert(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sessions (pid, file, created_at, trials, correct, digest, partial)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.PID, e.File, e.CreatedAt.UnixNano(), e.Trials, e.Correct, e.Digest, e.Partial,
	)
	if err != nil {
		return fmt.Errorf("insert session %d: %w", e.PID, err)
	}
	return nil
}

// maxPID returns the highest recorded participant id, or 0 when empty.
func (l *ledger) maxPID(ctx context.Context) (int, error) {
	var pid sql.NullInt64
	if err := l.db.QueryRowContext(ctx, `SELECT MAX(pid) FROM sessions`).Scan(&pid); err != nil {
		return 0, fmt.Errorf("query max pid: %w", err)
	}
	return int(pid.Int64), nil
}

func (l *ledger) list(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT pid, file, created_at, trials, correct, digest, partial
		FROM sessions
		ORDER BY pid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (l *ledger) byFile(ctx context.Context, file string) (Entry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT pid, file, created_at, trials, correct, digest, partial
		FROM sessions
		WHERE file = ?`, file)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", file, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var created int64
	if err := s.Scan(&e.PID, &e.File, &created, &e.Trials, &e.Correct, &e.Digest, &e.Partial); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan session: %w", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return e, nil
}
