package briefing

import (
	"context"
	"sync"
)

// Manager owns one poller per session token. It exists so a single process
// can host briefing sessions for many users; each token's poller keeps the
// one-in-flight-request and cancel-before-replace guarantees on its own.
type Manager struct {
	newPoller func(token string) *Poller

	mu      sync.Mutex
	pollers map[string]*Poller
}

// NewManager creates a manager. newPoller builds a poller bound to the given
// session token's credentials.
func NewManager(newPoller func(token string) *Poller) *Manager {
	return &Manager{
		newPoller: newPoller,
		pollers:   make(map[string]*Poller),
	}
}

// Start begins (or restarts) the briefing session for token.
func (m *Manager) Start(ctx context.Context, token string) Snapshot {
	p := m.pollerFor(token)
	p.Start(ctx)
	return p.Snapshot()
}

// Retry fires the re-enrichment trigger for token and restarts its loop.
func (m *Manager) Retry(ctx context.Context, token string) Snapshot {
	p := m.pollerFor(token)
	p.Retry(ctx)
	return p.Snapshot()
}

// Cancel stops the session for token, if any. No-op for unknown tokens.
func (m *Manager) Cancel(token string) {
	m.mu.Lock()
	p := m.pollers[token]
	m.mu.Unlock()
	if p != nil {
		p.Cancel()
	}
}

// Snapshot returns the current view for token. Unknown tokens get an idle
// snapshot.
func (m *Manager) Snapshot(token string) Snapshot {
	m.mu.Lock()
	p := m.pollers[token]
	m.mu.Unlock()
	if p == nil {
		return Snapshot{Phase: PhaseSignup, State: StateIdle}
	}
	return p.Snapshot()
}

// Shutdown cancels every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pollers := make([]*Poller, 0, len(m.pollers))
	for _, p := range m.pollers {
		pollers = append(pollers, p)
	}
	m.mu.Unlock()
	for _, p := range pollers {
		p.Cancel()
	}
}

func (m *Manager) pollerFor(token string) *Poller {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pollers[token]
	if !ok {
		p = m.newPoller(token)
		m.pollers[token] = p
	}
	return p
}
