// Package transcript keeps the record of the running session in an
// in-memory SQLite database. Nothing survives the process.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

const schema = `
CREATE TABLE requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	mode TEXT NOT NULL,
	payload_bytes INTEGER NOT NULL
);
CREATE TABLE commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	command TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	success INTEGER NOT NULL,
	timed_out INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);`

// SQLiteStore implements ports.TranscriptStore.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore opens a private in-memory database.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// RecordRequest notes one outbound backend request.
func (s *SQLiteStore) RecordRequest(ctx context.Context, sessionID string, req domain.ModelRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (session_id, created_at, mode, payload_bytes) VALUES (?, ?, ?, ?)`,
		sessionID, s.now().UnixMilli(), string(req.Mode), len(req.Payload),
	)
	if err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}

// RecordOutcome notes one executed command.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, sessionID string, outcome domain.ExecutionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (session_id, created_at, command, exit_code, success, timed_out, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		s.now().UnixMilli(),
		outcome.Command,
		outcome.ExitCode,
		boolToInt(outcome.Succeeded),
		boolToInt(outcome.TimedOut),
		outcome.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Summary aggregates what the session did so far.
func (s *SQLiteStore) Summary(ctx context.Context, sessionID string) (domain.TranscriptSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := domain.TranscriptSummary{SessionID: sessionID, Requests: map[domain.Mode]int{}}

	var started sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(created_at) FROM requests WHERE session_id = ?`, sessionID,
	).Scan(&started); err != nil {
		return summary, fmt.Errorf("summarize requests: %w", err)
	}
	if started.Valid {
		summary.Started = time.UnixMilli(started.Int64)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, COUNT(*) FROM requests WHERE session_id = ? GROUP BY mode`, sessionID)
	if err != nil {
		return summary, fmt.Errorf("summarize requests: %w", err)
	}
	for rows.Next() {
		var mode string
		var count int
		if err := rows.Scan(&mode, &count); err != nil {
			rows.Close()
			return summary, err
		}
		summary.Requests[domain.Mode(mode)] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT command, exit_code, success, timed_out, duration_ms FROM commands
		WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return summary, fmt.Errorf("summarize commands: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec domain.CommandRecord
		var success, timedOut int
		var durationMS int64
		if err := rows.Scan(&rec.Command, &rec.ExitCode, &success, &timedOut, &durationMS); err != nil {
			return summary, err
		}
		rec.Succeeded = success == 1
		rec.TimedOut = timedOut == 1
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		summary.Commands = append(summary.Commands, rec)
	}
	return summary, rows.Err()
}

// Close drops the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.TranscriptStore = (*SQLiteStore)(nil)
