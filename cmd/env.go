package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/briefing-service/internal/briefing"
	"github.com/sells-group/briefing-service/internal/resilience"
	"github.com/sells-group/briefing-service/internal/store"
	"github.com/sells-group/briefing-service/pkg/profile"
)

// sharedLimiter caps outbound polls across every session this process hosts.
var sharedLimiter *rate.Limiter

func outboundLimiter() *rate.Limiter {
	if sharedLimiter == nil {
		r := cfg.Profile.RatePerSec
		if r <= 0 {
			r = 5
		}
		sharedLimiter = rate.NewLimiter(rate.Limit(r), r)
	}
	return sharedLimiter
}

func newProfileClient(sessionToken string) profile.Client {
	return profile.NewClient(cfg.Profile.BaseURL, sessionToken,
		profile.WithPaths(cfg.Profile.ContextPath, cfg.Profile.RetryPath),
		profile.WithSessionCookie(cfg.Profile.SessionCookie),
		profile.WithTimeout(time.Duration(cfg.Profile.TimeoutSecs)*time.Second),
		profile.WithLimiter(outboundLimiter()),
	)
}

func pollerConfig() briefing.Config {
	c := briefing.Config{
		InitialDelay:    cfg.Briefing.InitialDelay(),
		PollInterval:    cfg.Briefing.PollInterval(),
		MaxAttempts:     cfg.Briefing.MaxAttempts,
		TimelineTick:    cfg.Briefing.TimelineTick(),
		TimelineMaxStep: cfg.Briefing.TimelineMaxStep,
	}
	if cfg.Briefing.BackoffEnabled {
		c.Pacer = resilience.Pacer{
			Interval: cfg.Briefing.PollInterval(),
			Backoff:  true,
			MaxDelay: time.Duration(cfg.Briefing.BackoffMaxDelayS) * time.Second,
		}
	}
	return c
}

// openJournal opens the session journal, or returns nil when unavailable.
// The poll loop runs identically without one.
func openJournal(ctx context.Context) store.Store {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		zap.L().Warn("journal unavailable, sessions will not be recorded", zap.Error(err))
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("journal migrate failed, sessions will not be recorded", zap.Error(err))
		_ = st.Close()
		return nil
	}
	return st
}

// newPollerFactory builds the per-token poller constructor used by the
// session manager. journal may be nil.
func newPollerFactory(journal store.Store, onUpdate func(briefing.Snapshot)) func(token string) *briefing.Poller {
	pcfg := pollerConfig()
	pcfg.OnUpdate = onUpdate
	return func(token string) *briefing.Poller {
		var j briefing.Journal
		if journal != nil {
			j = journal
		}
		return briefing.NewPoller(newProfileClient(token), pcfg, j)
	}
}
