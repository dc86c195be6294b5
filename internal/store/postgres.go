package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-service/internal/briefing"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	outcome     TEXT NOT NULL DEFAULT '',
	attempts    INTEGER NOT NULL DEFAULT 0,
	briefing    JSONB
);

CREATE TABLE IF NOT EXISTS session_attempts (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	attempt    INTEGER NOT NULL,
	outcome    TEXT NOT NULL,
	at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_session_attempts_session_id ON session_attempts(session_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SessionStarted(ctx context.Context, sessionID string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, started_at) VALUES ($1, $2)`,
		sessionID, startedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert session %s", sessionID)
}

func (s *PostgresStore) AttemptRecorded(ctx context.Context, sessionID string, attempt int, outcome string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_attempts (id, session_id, attempt, outcome, at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), sessionID, attempt, outcome, at.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert attempt for session %s", sessionID)
}

func (s *PostgresStore) SessionFinished(ctx context.Context, sessionID string, outcome string, attempts int, rec briefing.Record, finishedAt time.Time) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal briefing")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET finished_at = $1, outcome = $2, attempts = $3, briefing = $4 WHERE id = $5`,
		finishedAt.UTC(), outcome, attempts, recJSON, sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: session %s not found", sessionID)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions WHERE id = $1`,
		id,
	)
	sess, err := scanPostgresSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: session %s not found", id)
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	query := `SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions WHERE 1=1`
	var args []any

	if filter.Outcome != "" {
		args = append(args, filter.Outcome)
		query += ` AND outcome = $1`
	}
	if !filter.StartedAfter.IsZero() {
		args = append(args, filter.StartedAfter.UTC())
		query += ` AND started_at > $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanPostgresSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) ListAttempts(ctx context.Context, sessionID string) ([]AttemptEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, attempt, outcome, at FROM session_attempts WHERE session_id = $1 ORDER BY attempt ASC`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list attempts for session %s", sessionID)
	}
	defer rows.Close()

	var attempts []AttemptEntry
	for rows.Next() {
		var a AttemptEntry
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Attempt, &a.Outcome, &a.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan attempt")
		}
		attempts = append(attempts, a)
	}
	return attempts, eris.Wrap(rows.Err(), "postgres: list attempts iterate")
}

func scanPostgresSession(row pgx.Row) (*Session, error) {
	var sess Session
	var finishedAt *time.Time
	var briefingJSON []byte

	if err := row.Scan(&sess.ID, &sess.StartedAt, &finishedAt, &sess.Outcome, &sess.Attempts, &briefingJSON); err != nil {
		return nil, err
	}
	sess.FinishedAt = finishedAt
	if len(briefingJSON) > 0 {
		var rec briefing.Record
		if err := json.Unmarshal(briefingJSON, &rec); err != nil {
			return nil, eris.Wrap(err, "unmarshal briefing")
		}
		sess.Briefing = &rec
	}
	return &sess, nil
}
