package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/briefing-service/internal/briefing"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	outcome     TEXT NOT NULL DEFAULT '',
	attempts    INTEGER NOT NULL DEFAULT 0,
	briefing    TEXT
);

CREATE TABLE IF NOT EXISTS session_attempts (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	attempt    INTEGER NOT NULL,
	outcome    TEXT NOT NULL,
	at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_session_attempts_session_id ON session_attempts(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SessionStarted(ctx context.Context, sessionID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sessionID, startedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert session %s", sessionID)
}

func (s *SQLiteStore) AttemptRecorded(ctx context.Context, sessionID string, attempt int, outcome string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_attempts (id, session_id, attempt, outcome, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, attempt, outcome, at.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert attempt for session %s", sessionID)
}

func (s *SQLiteStore) SessionFinished(ctx context.Context, sessionID string, outcome string, attempts int, rec briefing.Record, finishedAt time.Time) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal briefing")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, outcome = ?, attempts = ?, briefing = ? WHERE id = ?`,
		finishedAt.UTC(), outcome, attempts, string(recJSON), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish session %s", sessionID)
	}
	return checkRowsAffected(res, sessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	query := `SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions WHERE 1=1`
	var args []any

	if filter.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, filter.Outcome)
	}
	if !filter.StartedAfter.IsZero() {
		query += ` AND started_at > ?`
		args = append(args, filter.StartedAfter.UTC())
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, sessionID string) ([]AttemptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, attempt, outcome, at FROM session_attempts WHERE session_id = ? ORDER BY attempt ASC`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list attempts for session %s", sessionID)
	}
	defer rows.Close()

	var attempts []AttemptEntry
	for rows.Next() {
		var a AttemptEntry
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Attempt, &a.Outcome, &a.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attempt")
		}
		attempts = append(attempts, a)
	}
	return attempts, eris.Wrap(rows.Err(), "sqlite: list attempts iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var finishedAt sql.NullTime
	var briefingJSON sql.NullString

	if err := row.Scan(&sess.ID, &sess.StartedAt, &finishedAt, &sess.Outcome, &sess.Attempts, &briefingJSON); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		sess.FinishedAt = &t
	}
	if briefingJSON.Valid && briefingJSON.String != "" {
		var rec briefing.Record
		if err := json.Unmarshal([]byte(briefingJSON.String), &rec); err != nil {
			return nil, eris.Wrap(err, "unmarshal briefing")
		}
		sess.Briefing = &rec
	}
	return &sess, nil
}

func checkRowsAffected(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: session %s not found", sessionID)
	}
	return nil
}
