// Package store persists finished translation sessions to a local SQLite
// database so transcripts survive the process.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/juanan28s/flextranslator/internal/transcript"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	lang_a     TEXT NOT NULL,
	lang_b     TEXT NOT NULL,
	context_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL REFERENCES sessions(id),
	position        INTEGER NOT NULL,
	source_text     TEXT NOT NULL,
	translation     TEXT NOT NULL,
	transliteration TEXT NOT NULL,
	source_lang     TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, position);
`

// SessionRecord describes one persisted session.
type SessionRecord struct {
	ID        string
	LangA     string
	LangB     string
	ContextID string
	StartedAt time.Time
	EndedAt   time.Time
}

// Store wraps the SQLite database holding session transcripts.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping probes the database. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSession persists one session and its turns in a single transaction and
// returns the generated session ID.
func (s *Store) SaveSession(ctx context.Context, rec SessionRecord, turns []transcript.Turn) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, lang_a, lang_b, context_id, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.LangA, rec.LangB, rec.ContextID, rec.StartedAt.Unix(), rec.EndedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	for i, t := range turns {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO turns (id, session_id, position, source_text, translation, transliteration, source_lang, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, rec.ID, i, t.SourceText, t.Translation, t.Transliteration, t.SourceLang, t.Timestamp.Unix())
		if err != nil {
			return "", fmt.Errorf("insert turn %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return rec.ID, nil
}

// Sessions returns all persisted sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lang_a, lang_b, context_id, started_at, ended_at
		FROM sessions
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var startedAt, endedAt int64
		if err := rows.Scan(&rec.ID, &rec.LangA, &rec.LangB, &rec.ContextID, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.EndedAt = time.Unix(endedAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Turns returns the turns of one session in log order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]transcript.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_text, translation, transliteration, source_lang, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []transcript.Turn
	for rows.Next() {
		var t transcript.Turn
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SourceText, &t.Translation, &t.Transliteration, &t.SourceLang, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Timestamp = time.Unix(createdAt, 0)
		t.Final = true
		out = append(out, t)
	}
	return out, rows.Err()
}
