package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Checker periodically collects session metrics and flags degradation. It
// logs rather than pages: the serve surface exposes the same snapshot on
// /metrics for anything that wants to scrape it.
type Checker struct {
	collector     *Collector
	interval      time.Duration
	lookbackHours int

	// TimeoutRateWarn is the resolved-session timeout rate above which the
	// checker logs at warn level. Default 0.25.
	TimeoutRateWarn float64
}

// NewChecker creates a background metrics checker.
func NewChecker(collector *Collector, interval time.Duration, lookbackHours int) *Checker {
	return &Checker{
		collector:       collector,
		interval:        interval,
		lookbackHours:   lookbackHours,
		TimeoutRateWarn: 0.25,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := c.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting metrics checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.lookbackHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("metrics checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.lookbackHours)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.Int("sessions_total", snap.SessionsTotal),
		zap.Int("sessions_ready", snap.SessionsReady),
		zap.Int("sessions_failed", snap.SessionsFailed),
		zap.Int("sessions_timed_out", snap.SessionsTimedOut),
		zap.Float64("timeout_rate", snap.TimeoutRate),
		zap.Float64("avg_attempts", snap.AvgAttempts),
	}

	if snap.TimeoutRate > c.TimeoutRateWarn {
		log.Warn("monitoring: elevated briefing timeout rate", fields...)
		return
	}
	log.Debug("monitoring: check complete", fields...)
}
