package briefing

import (
	"go.uber.org/zap"

	"github.com/sells-group/briefing-service/pkg/profile"
)

// Verdict is the classifier's reading of one poll response.
type Verdict string

const (
	// VerdictPending schedules another attempt.
	VerdictPending Verdict = "pending"
	// VerdictReady ends the loop with a populated briefing.
	VerdictReady Verdict = "ready"
	// VerdictFailed ends the loop: the server reported a definitive failure.
	VerdictFailed Verdict = "failed"
)

// The server's status vocabulary is open; these are the known terminal
// buckets. Anything unrecognized is treated as still pending.
var readyStatuses = map[string]struct{}{
	"complete":      {},
	"live_research": {},
	"ok":            {},
	"limited":       {},
}

var failedStatuses = map[string]struct{}{
	"failed":  {},
	"timeout": {},
	"error":   {},
}

// Statuses we expect to see while the job is still running. Used only to
// decide whether an unseen string is worth flagging.
var pendingStatuses = map[string]struct{}{
	"":            {},
	"in_progress": {},
	"pending":     {},
	"queued":      {},
	"retrying":    {},
}

// Classify maps a poll payload to a verdict. The profileEnriched flag wins
// outright; otherwise the enrichment status string (top-level, falling back
// to the copy nested under aiProfile) is partitioned into the known terminal
// buckets. Unrecognized statuses are logged and treated as pending.
func Classify(p *profile.ContextPayload) Verdict {
	if p == nil {
		return VerdictPending
	}
	if p.ProfileEnriched {
		return VerdictReady
	}

	status := p.MetaStatus()
	if _, ok := readyStatuses[status]; ok {
		return VerdictReady
	}
	if _, ok := failedStatuses[status]; ok {
		return VerdictFailed
	}
	if _, ok := pendingStatuses[status]; !ok {
		zap.L().Debug("briefing: unrecognized enrichment status, treating as pending",
			zap.String("status", status),
		)
	}
	return VerdictPending
}
