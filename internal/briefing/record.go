package briefing

import (
	"slices"

	"github.com/sells-group/briefing-service/pkg/profile"
)

// Status is the lifecycle of the briefing record itself, distinct from the
// server-side enrichment status string.
type Status string

const (
	// StatusIdle means no poll session has ever run for this record.
	StatusIdle Status = ""
	// StatusPolling means a session is actively watching the enrichment job.
	StatusPolling Status = "polling"
	// StatusReady means the loop resolved: either the profile enriched or the
	// server reported a definitive failure (the reason travels in
	// EnrichmentStatus).
	StatusReady Status = "ready"
	// StatusTimeout means the loop gave up after exhausting its attempt
	// ceiling without a terminal verdict from the server.
	StatusTimeout Status = "timeout"
)

// Record is the accumulating intelligence briefing shown to a newly
// registered user. Fields are filled in incrementally as the enrichment job
// produces partial results; a later payload never erases a field a previous
// payload supplied.
type Record struct {
	Status           Status  `json:"status"`
	EnrichmentStatus string  `json:"enrichmentStatus,omitempty"`
	QualityScore     float64 `json:"qualityScore,omitempty"`

	CompanySnapshot        string              `json:"companySnapshot,omitempty"`
	TargetAudience         string              `json:"targetAudience,omitempty"`
	TargetAudienceSegments []string            `json:"targetAudienceSegments,omitempty"`
	CallAngles             []string            `json:"callAngles,omitempty"`
	Objections             []profile.Objection `json:"objections,omitempty"`
	Competitors            []string            `json:"competitors,omitempty"`
	UniqueSellingPoints    []string            `json:"uniqueSellingPoints,omitempty"`
	DecisionMakers         []string            `json:"decisionMakers,omitempty"`
	NextActions            []string            `json:"nextActions,omitempty"`
}

// Clone returns a deep copy of the record. Snapshots handed to callers must
// not alias the poller's internal slices.
func (r Record) Clone() Record {
	out := r
	out.TargetAudienceSegments = slices.Clone(r.TargetAudienceSegments)
	out.CallAngles = slices.Clone(r.CallAngles)
	out.Objections = slices.Clone(r.Objections)
	out.Competitors = slices.Clone(r.Competitors)
	out.UniqueSellingPoints = slices.Clone(r.UniqueSellingPoints)
	out.DecisionMakers = slices.Clone(r.DecisionMakers)
	out.NextActions = slices.Clone(r.NextActions)
	return out
}
