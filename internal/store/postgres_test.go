package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/briefing-service/internal/briefing"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresSessionStarted(t *testing.T) {
	s, mock := newMockPostgres(t)
	started := time.Now().UTC()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("sess-1", started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SessionStarted(context.Background(), "sess-1", started))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAttemptRecorded(t *testing.T) {
	s, mock := newMockPostgres(t)
	at := time.Now().UTC()

	mock.ExpectExec("INSERT INTO session_attempts").
		WithArgs(pgxmock.AnyArg(), "sess-1", 3, "soft_failure", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AttemptRecorded(context.Background(), "sess-1", 3, "soft_failure", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionFinished(t *testing.T) {
	s, mock := newMockPostgres(t)
	finished := time.Now().UTC()
	rec := briefing.Record{Status: briefing.StatusReady, QualityScore: 0.9}
	recJSON, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE sessions SET").
		WithArgs(finished, "ready", 7, recJSON, "sess-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SessionFinished(context.Background(), "sess-1", "ready", 7, rec, finished))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionFinishedUnknownSession(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE sessions SET").
		WithArgs(pgxmock.AnyArg(), "ready", 1, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SessionFinished(context.Background(), "missing", "ready", 1, briefing.Record{}, time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresGetSession(t *testing.T) {
	s, mock := newMockPostgres(t)
	started := time.Now().UTC().Add(-time.Minute)
	finished := started.Add(30 * time.Second)
	recJSON := []byte(`{"status":"ready","qualityScore":0.75}`)

	mock.ExpectQuery("SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "started_at", "finished_at", "outcome", "attempts", "briefing"},
		).AddRow("sess-1", started, &finished, "ready", 4, recJSON))

	got, err := s.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, 4, got.Attempts)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Briefing)
	assert.Equal(t, briefing.StatusReady, got.Briefing.Status)
	assert.InDelta(t, 0.75, got.Briefing.QualityScore, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSessionNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "started_at", "finished_at", "outcome", "attempts", "briefing"},
		))

	_, err := s.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresListSessionsFilter(t *testing.T) {
	s, mock := newMockPostgres(t)
	started := time.Now().UTC().Add(-10 * time.Minute)
	after := started.Add(-time.Hour)

	mock.ExpectQuery("SELECT id, started_at, finished_at, outcome, attempts, briefing FROM sessions").
		WithArgs("timeout", after, 50).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "started_at", "finished_at", "outcome", "attempts", "briefing"},
		).AddRow("sess-1", started, (*time.Time)(nil), "timeout", 90, []byte(nil)))

	got, err := s.ListSessions(context.Background(), SessionFilter{
		Outcome:      "timeout",
		StartedAfter: after,
		Limit:        50,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "timeout", got[0].Outcome)
	assert.Equal(t, 90, got[0].Attempts)
	assert.Nil(t, got[0].FinishedAt)
	assert.Nil(t, got[0].Briefing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAttempts(t *testing.T) {
	s, mock := newMockPostgres(t)
	at := time.Now().UTC()

	mock.ExpectQuery("SELECT id, session_id, attempt, outcome, at FROM session_attempts").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "session_id", "attempt", "outcome", "at"},
		).
			AddRow("a-1", "sess-1", 1, "pending", at).
			AddRow("a-2", "sess-1", 2, "ready", at.Add(3*time.Second)))

	got, err := s.ListAttempts(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pending", got[0].Outcome)
	assert.Equal(t, 2, got[1].Attempt)
	require.NoError(t, mock.ExpectationsWereMet())
}
