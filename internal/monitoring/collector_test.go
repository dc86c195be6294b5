package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/briefing-service/internal/briefing"
	"github.com/sells-group/briefing-service/internal/store"
)

type fakeStore struct {
	sessions   []store.Session
	lastFilter store.SessionFilter
	listErr    error
}

func (f *fakeStore) SessionStarted(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) AttemptRecorded(context.Context, string, int, string, time.Time) error {
	return nil
}
func (f *fakeStore) SessionFinished(context.Context, string, string, int, briefing.Record, time.Time) error {
	return nil
}
func (f *fakeStore) GetSession(context.Context, string) (*store.Session, error) { return nil, nil }
func (f *fakeStore) ListAttempts(context.Context, string) ([]store.AttemptEntry, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func (f *fakeStore) ListSessions(_ context.Context, filter store.SessionFilter) ([]store.Session, error) {
	f.lastFilter = filter
	return f.sessions, f.listErr
}

func sessionWith(outcome string, attempts int, score float64) store.Session {
	s := store.Session{
		ID:        outcome + "-session",
		StartedAt: time.Now().UTC().Add(-time.Minute),
		Outcome:   outcome,
		Attempts:  attempts,
	}
	if score > 0 {
		s.Briefing = &briefing.Record{QualityScore: score}
	}
	return s
}

func TestCollect(t *testing.T) {
	fs := &fakeStore{sessions: []store.Session{
		sessionWith("ready", 3, 0.8),
		sessionWith("ready", 5, 0.6),
		sessionWith("failed", 10, 0),
		sessionWith("timeout", 90, 0),
		sessionWith("", 2, 0), // still open
	}}

	snap, err := NewCollector(fs).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.SessionsTotal)
	assert.Equal(t, 2, snap.SessionsReady)
	assert.Equal(t, 1, snap.SessionsFailed)
	assert.Equal(t, 1, snap.SessionsTimedOut)
	assert.Equal(t, 1, snap.SessionsOpen)

	assert.InDelta(t, 0.25, snap.TimeoutRate, 1e-9)
	assert.InDelta(t, 0.25, snap.FailRate, 1e-9)
	assert.InDelta(t, 110.0/4.0, snap.AvgAttempts, 1e-9)
	assert.InDelta(t, 0.7, snap.AvgQualityScore, 1e-9)
	assert.Equal(t, 24, snap.LookbackHours)

	// The lookback window drives the journal query.
	assert.WithinDuration(t,
		time.Now().UTC().Add(-24*time.Hour), fs.lastFilter.StartedAfter, time.Minute)
}

func TestCollectEmptyWindow(t *testing.T) {
	snap, err := NewCollector(&fakeStore{}).Collect(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, snap.SessionsTotal)
	assert.Zero(t, snap.TimeoutRate)
	assert.Zero(t, snap.AvgAttempts)
	assert.Zero(t, snap.AvgQualityScore)
}

func TestCollectStoreError(t *testing.T) {
	fs := &fakeStore{listErr: errors.New("connection lost")}

	_, err := NewCollector(fs).Collect(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list sessions")
}
