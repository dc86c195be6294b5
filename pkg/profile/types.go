package profile

// ContextPayload is the response from the profile-context endpoint. The shape
// is not contractually fixed: every field may be absent, null, or partially
// populated while the enrichment job is still running.
type ContextPayload struct {
	ProfileEnriched bool            `json:"profileEnriched,omitempty"`
	EnrichmentMeta  *EnrichmentMeta `json:"enrichmentMeta,omitempty"`
	AIProfile       *AIProfile      `json:"aiProfile,omitempty"`
}

// EnrichmentMeta reports the server-side enrichment job state. Status is an
// open vocabulary ("in_progress", "complete", "live_research", "failed", ...);
// callers must not assume the set is closed.
type EnrichmentMeta struct {
	Status       string  `json:"status,omitempty"`
	QualityScore float64 `json:"qualityScore,omitempty"`
}

// AIProfile carries the structured intelligence profile produced by the
// enrichment job.
type AIProfile struct {
	CompanyDescription     string          `json:"companyDescription,omitempty"`
	TargetAudience         string          `json:"targetAudience,omitempty"`
	TargetAudienceSegments []string        `json:"targetAudienceSegments,omitempty"`
	CallAngles             []string        `json:"callAngles,omitempty"`
	ObjectionHandling      []Objection     `json:"objectionHandling,omitempty"`
	Competitors            []string        `json:"competitors,omitempty"`
	UniqueSellingPoints    []string        `json:"uniqueSellingPoints,omitempty"`
	DecisionMakers         []string        `json:"decisionMakers,omitempty"`
	NextActions            []string        `json:"nextActions,omitempty"`
	EnrichmentMeta         *EnrichmentMeta `json:"enrichmentMeta,omitempty"`
}

// Objection pairs an anticipated objection with a suggested response.
type Objection struct {
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

// MetaStatus returns the enrichment status string, preferring the top-level
// enrichmentMeta and falling back to the copy nested under aiProfile.
func (p *ContextPayload) MetaStatus() string {
	if p == nil {
		return ""
	}
	if p.EnrichmentMeta != nil && p.EnrichmentMeta.Status != "" {
		return p.EnrichmentMeta.Status
	}
	if p.AIProfile != nil && p.AIProfile.EnrichmentMeta != nil {
		return p.AIProfile.EnrichmentMeta.Status
	}
	return ""
}

// MetaQualityScore returns the quality score, preferring the top-level
// enrichmentMeta and falling back to the copy nested under aiProfile.
func (p *ContextPayload) MetaQualityScore() float64 {
	if p == nil {
		return 0
	}
	if p.EnrichmentMeta != nil && p.EnrichmentMeta.QualityScore > 0 {
		return p.EnrichmentMeta.QualityScore
	}
	if p.AIProfile != nil && p.AIProfile.EnrichmentMeta != nil {
		return p.AIProfile.EnrichmentMeta.QualityScore
	}
	return 0
}
