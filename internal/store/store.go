package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-service/internal/briefing"
)

// Session is one journaled poll session from start to terminal resolution.
// Cancelled sessions never reach the journal's finish path, so a row with an
// empty outcome and no finished_at is either live or was torn down.
type Session struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Outcome    string           `json:"outcome,omitempty"` // ready | failed | timeout
	Attempts   int              `json:"attempts"`
	Briefing   *briefing.Record `json:"briefing,omitempty"`
}

// AttemptEntry is one journaled round-trip within a session.
type AttemptEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Attempt   int       `json:"attempt"`
	Outcome   string    `json:"outcome"`
	At        time.Time `json:"at"`
}

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Outcome      string    `json:"outcome,omitempty"`
	StartedAfter time.Time `json:"started_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store persists the session journal. It satisfies briefing.Journal so a
// poller can write to it directly.
type Store interface {
	briefing.Journal

	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	ListAttempts(ctx context.Context, sessionID string) ([]AttemptEntry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the given driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
