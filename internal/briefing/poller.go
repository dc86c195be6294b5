package briefing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-service/internal/resilience"
	"github.com/sells-group/briefing-service/pkg/profile"
)

// Config tunes the poll loop. Zero values fall back to the observed
// production cadence: first fetch after 2s, then every 3s, up to 90 attempts,
// with the cosmetic timeline ticking every 3s to a maximum step of 4. The
// effective give-up horizon is MaxAttempts x PollInterval, so tune them
// together.
type Config struct {
	InitialDelay    time.Duration
	PollInterval    time.Duration
	MaxAttempts     int
	TimelineTick    time.Duration
	TimelineMaxStep int

	// Pacer overrides the fixed inter-poll cadence, e.g. to enable bounded
	// backoff on consecutive soft failures. When zero-valued, a fixed
	// PollInterval cadence is used.
	Pacer resilience.Pacer

	// OnUpdate, if set, is called with a snapshot after every observable
	// state change. Calls are serialized; the callback must not call back
	// into the poller.
	OnUpdate func(Snapshot)
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 2 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 90
	}
	if c.TimelineTick <= 0 {
		c.TimelineTick = 3 * time.Second
	}
	if c.TimelineMaxStep <= 0 {
		c.TimelineMaxStep = 4
	}
	if c.Pacer.Interval <= 0 {
		c.Pacer.Interval = c.PollInterval
	}
	return c
}

// Journal receives session lifecycle events for observability. Implementations
// must tolerate being called from the poll goroutine; errors are logged by the
// poller and never affect the loop.
type Journal interface {
	SessionStarted(ctx context.Context, sessionID string, startedAt time.Time) error
	AttemptRecorded(ctx context.Context, sessionID string, attempt int, outcome string, at time.Time) error
	SessionFinished(ctx context.Context, sessionID string, outcome string, attempts int, rec Record, finishedAt time.Time) error
}

// Attempt outcomes recorded to the journal.
const (
	OutcomePending     = "pending"
	OutcomeSoftFailure = "soft_failure"
	OutcomeReady       = "ready"
	OutcomeFailed      = "failed"
	OutcomeTimeout     = "timeout"
)

// State is the poller's own lifecycle, separate from Record.Status: explicit
// cancellation returns the poller to Idle without touching the record.
type State string

const (
	StateIdle     State = "idle"
	StatePolling  State = "polling"
	StateReady    State = "ready"
	StateTimedOut State = "timed_out"
)

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Record       Record `json:"record"`
	Phase        Phase  `json:"phase"`
	State        State  `json:"state"`
	TimelineStep int    `json:"timelineStep"`
	Attempts     int    `json:"attempts"`
	SessionID    string `json:"sessionId,omitempty"`
}

// Poller watches a slow server-side enrichment job and folds its partial
// results into a briefing record. At most one session runs at a time; starting
// or retrying while a session is live cancels the old session synchronously
// before the new one is created, and a late response from a superseded session
// never touches the record.
type Poller struct {
	client  profile.Client
	cfg     Config
	journal Journal // optional

	mu           sync.Mutex
	state        State
	record       Record
	timelineStep int
	attempts     int
	session      *session
}

type session struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	attempts   int
	softStreak int
}

// NewPoller creates a poller over the given client. journal may be nil.
func NewPoller(client profile.Client, cfg Config, journal Journal) *Poller {
	return &Poller{
		client:  client,
		cfg:     cfg.withDefaults(),
		journal: journal,
		state:   StateIdle,
	}
}

// Start begins a new poll session, superseding any session in flight. The
// record's accumulated fields survive; only its status resets to polling.
func (p *Poller) Start(ctx context.Context) {
	p.startSession(ctx, "")
}

// Retry restarts the poll loop and fires the server-side re-enrichment
// trigger. The session starts first so the "retrying" seed is visible
// immediately; the POST runs in the background and is best-effort (a failure
// is logged, never surfaced), since the poll loop is the source of truth for
// whether enrichment actually restarted.
func (p *Poller) Retry(ctx context.Context) {
	p.startSession(ctx, "retrying")
	go func() {
		if err := p.client.TriggerReenrich(ctx); err != nil {
			zap.L().Warn("briefing: re-enrichment trigger failed, polling anyway", zap.Error(err))
		}
	}()
}

// Cancel returns the poller to idle from any state, aborting any in-flight
// request and releasing both timers. The record is not mutated: a cancelled
// session vanishes silently and a resolved record survives. Idempotent.
func (p *Poller) Cancel() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.state = StateIdle
	p.mu.Unlock()

	if s != nil {
		s.cancel()
	}
}

// Done returns a channel closed when the current session's loop exits. If no
// session is running, the returned channel is already closed.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return p.session.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Snapshot returns the current read-only view.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Record:       p.record.Clone(),
		Phase:        PhaseOf(p.record),
		State:        p.state,
		TimelineStep: p.timelineStep,
		Attempts:     p.attempts,
	}
	if p.session != nil {
		snap.SessionID = p.session.id
	}
	return snap
}

func (p *Poller) startSession(ctx context.Context, seedStatus string) {
	s := &session{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	p.mu.Lock()
	// Cancel before replace: the old session must be dead before the new one
	// exists, or a late response could corrupt the fresh record.
	if old := p.session; old != nil {
		old.cancel()
	}
	p.session = s
	p.state = StatePolling
	p.record.Status = StatusPolling
	if seedStatus != "" {
		p.record.EnrichmentStatus = seedStatus
	}
	p.timelineStep = 0
	p.attempts = 0
	p.notifyLocked()
	p.mu.Unlock()

	go p.run(s)
}

func (p *Poller) run(s *session) {
	defer close(s.done)
	defer s.cancel()

	log := zap.L().With(zap.String("session_id", s.id))
	log.Info("briefing: poll session started",
		zap.Int("max_attempts", p.cfg.MaxAttempts),
		zap.Duration("interval", p.cfg.PollInterval),
	)

	if p.journal != nil {
		if err := p.journal.SessionStarted(s.ctx, s.id, time.Now().UTC()); err != nil {
			log.Warn("briefing: journal session start failed", zap.Error(err))
		}
	}

	ticker := time.NewTicker(p.cfg.TimelineTick)
	defer ticker.Stop()
	next := time.NewTimer(p.cfg.InitialDelay)
	defer next.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("briefing: poll session cancelled", zap.Int("attempts", s.attempts))
			return
		case <-ticker.C:
			p.advanceTimeline(s)
		case <-next.C:
			if terminal := p.attempt(s, log); terminal {
				return
			}
			next.Reset(p.cfg.Pacer.Delay(s.softStreak))
		}
	}
}

// attempt performs one round-trip and applies its outcome. It returns true
// when the session reached a terminal resolution (or was superseded) and no
// further attempts may be scheduled.
func (p *Poller) attempt(s *session, log *zap.Logger) bool {
	payload, err := p.client.FetchContext(s.ctx)
	s.attempts++

	// Cancellation is checked before any record mutation and before
	// scheduling: a response that raced with Cancel is discarded whole.
	if s.ctx.Err() != nil {
		return true
	}

	if err != nil {
		if !resilience.IsSoft(err) {
			// Unexpected non-transport error. The loop's failure model says
			// no single attempt is fatal, so it is paced like a soft failure.
			log.Error("briefing: unclassified fetch error", zap.Int("attempt", s.attempts), zap.Error(err))
		} else {
			log.Warn("briefing: soft failure", zap.Int("attempt", s.attempts), zap.Error(err))
		}
		s.softStreak++
		p.recordAttempt(s, OutcomeSoftFailure)
		return p.applyPending(s, nil, log)
	}

	s.softStreak = 0
	verdict := Classify(payload)
	switch verdict {
	case VerdictReady:
		p.recordAttempt(s, OutcomeReady)
		return p.applyTerminal(s, payload, StatusReady, OutcomeReady, log)
	case VerdictFailed:
		// A definitive server-side failure is a resolved outcome, not a
		// timeout: the record lands on ready with the failure reason
		// mirrored in EnrichmentStatus.
		p.recordAttempt(s, OutcomeFailed)
		return p.applyTerminal(s, payload, StatusReady, OutcomeFailed, log)
	default:
		p.recordAttempt(s, OutcomePending)
		return p.applyPending(s, payload, log)
	}
}

// applyPending merges a partial payload (nil on soft failure) and either
// schedules another round or times the session out at the attempt ceiling.
func (p *Poller) applyPending(s *session, payload *profile.ContextPayload, log *zap.Logger) bool {
	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return true
	}
	if payload != nil {
		p.record = Merge(p.record, payload)
	}
	p.attempts = s.attempts

	if s.attempts < p.cfg.MaxAttempts {
		p.notifyLocked()
		p.mu.Unlock()
		return false
	}

	p.record.Status = StatusTimeout
	p.state = StateTimedOut
	p.session = nil
	p.notifyLocked()
	rec := p.record.Clone()
	p.mu.Unlock()

	log.Warn("briefing: attempt ceiling reached, giving up",
		zap.Int("attempts", s.attempts),
	)
	p.finishJournal(s, OutcomeTimeout, rec, log)
	return true
}

// applyTerminal merges the final payload and resolves the session.
func (p *Poller) applyTerminal(s *session, payload *profile.ContextPayload, status Status, outcome string, log *zap.Logger) bool {
	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return true
	}
	p.record = Merge(p.record, payload)
	p.record.Status = status
	p.state = StateReady
	p.attempts = s.attempts
	p.session = nil
	p.notifyLocked()
	rec := p.record.Clone()
	p.mu.Unlock()

	log.Info("briefing: poll session resolved",
		zap.String("outcome", outcome),
		zap.String("enrichment_status", rec.EnrichmentStatus),
		zap.Int("attempts", s.attempts),
		zap.Float64("quality_score", rec.QualityScore),
	)
	p.finishJournal(s, outcome, rec, log)
	return true
}

func (p *Poller) advanceTimeline(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != s {
		return
	}
	if p.timelineStep < p.cfg.TimelineMaxStep {
		p.timelineStep++
		p.notifyLocked()
	}
}

func (p *Poller) recordAttempt(s *session, outcome string) {
	if p.journal == nil {
		return
	}
	if err := p.journal.AttemptRecorded(s.ctx, s.id, s.attempts, outcome, time.Now().UTC()); err != nil {
		zap.L().Warn("briefing: journal attempt failed", zap.String("session_id", s.id), zap.Error(err))
	}
}

func (p *Poller) finishJournal(s *session, outcome string, rec Record, log *zap.Logger) {
	if p.journal == nil {
		return
	}
	// The session context may be cancelled right after resolution; the
	// journal write still has to land.
	ctx := context.WithoutCancel(s.ctx)
	if err := p.journal.SessionFinished(ctx, s.id, outcome, s.attempts, rec, time.Now().UTC()); err != nil {
		log.Warn("briefing: journal session finish failed", zap.Error(err))
	}
}

func (p *Poller) notifyLocked() {
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(p.snapshotLocked())
	}
}
