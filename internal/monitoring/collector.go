package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-service/internal/briefing"
	"github.com/sells-group/briefing-service/internal/store"
)

// MetricsSnapshot holds a point-in-time view of briefing session health.
type MetricsSnapshot struct {
	// Session counts within the lookback window.
	SessionsTotal    int `json:"sessions_total"`
	SessionsReady    int `json:"sessions_ready"`
	SessionsFailed   int `json:"sessions_failed"`
	SessionsTimedOut int `json:"sessions_timed_out"`
	SessionsOpen     int `json:"sessions_open"`

	// TimeoutRate is timed-out sessions over resolved sessions. A rising
	// rate means the enrichment backend is slower than the attempt ceiling.
	TimeoutRate float64 `json:"timeout_rate"`
	FailRate    float64 `json:"fail_rate"`

	AvgAttempts     float64 `json:"avg_attempts"`
	AvgQualityScore float64 `json:"avg_quality_score"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the session journal.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector over the journal.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of session metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	sessions, err := c.store.ListSessions(ctx, store.SessionFilter{
		StartedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}

	snap.SessionsTotal = len(sessions)
	var totalAttempts int
	var totalScore float64
	var scoredSessions int

	for _, s := range sessions {
		switch s.Outcome {
		case briefing.OutcomeReady:
			snap.SessionsReady++
		case briefing.OutcomeFailed:
			snap.SessionsFailed++
		case briefing.OutcomeTimeout:
			snap.SessionsTimedOut++
		default:
			snap.SessionsOpen++
		}
		totalAttempts += s.Attempts
		if s.Briefing != nil && s.Briefing.QualityScore > 0 {
			totalScore += s.Briefing.QualityScore
			scoredSessions++
		}
	}

	resolved := snap.SessionsReady + snap.SessionsFailed + snap.SessionsTimedOut
	if resolved > 0 {
		snap.TimeoutRate = float64(snap.SessionsTimedOut) / float64(resolved)
		snap.FailRate = float64(snap.SessionsFailed) / float64(resolved)
		snap.AvgAttempts = float64(totalAttempts) / float64(resolved)
	}
	if scoredSessions > 0 {
		snap.AvgQualityScore = totalScore / float64(scoredSessions)
	}

	return snap, nil
}
