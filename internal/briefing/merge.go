package briefing

import (
	"slices"

	"github.com/sells-group/briefing-service/pkg/profile"
)

// Merge folds one poll payload into the record and returns the result. It is
// a pure reducer: the input record is not modified, and a field is only
// overwritten when the payload supplies a non-empty value for it. The quality
// score additionally applies a floor and never regresses.
func Merge(rec Record, p *profile.ContextPayload) Record {
	out := rec.Clone()
	if p == nil {
		return out
	}

	if status := p.MetaStatus(); status != "" {
		out.EnrichmentStatus = status
	}
	if qs := p.MetaQualityScore(); qs > 0 && qs >= out.QualityScore {
		out.QualityScore = qs
	}

	ai := p.AIProfile
	if ai == nil {
		return out
	}

	if ai.CompanyDescription != "" {
		out.CompanySnapshot = ai.CompanyDescription
	}
	if ai.TargetAudience != "" {
		out.TargetAudience = ai.TargetAudience
	}
	if len(ai.TargetAudienceSegments) > 0 {
		out.TargetAudienceSegments = slices.Clone(ai.TargetAudienceSegments)
	}
	if len(ai.CallAngles) > 0 {
		out.CallAngles = slices.Clone(ai.CallAngles)
	}
	if len(ai.ObjectionHandling) > 0 {
		out.Objections = slices.Clone(ai.ObjectionHandling)
	}
	if len(ai.Competitors) > 0 {
		out.Competitors = slices.Clone(ai.Competitors)
	}
	if len(ai.UniqueSellingPoints) > 0 {
		out.UniqueSellingPoints = slices.Clone(ai.UniqueSellingPoints)
	}
	if len(ai.DecisionMakers) > 0 {
		out.DecisionMakers = slices.Clone(ai.DecisionMakers)
	}
	if len(ai.NextActions) > 0 {
		out.NextActions = slices.Clone(ai.NextActions)
	}

	return out
}
