package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/briefing-service/pkg/profile"
)

func TestMerge_PartialPayloadNeverErases(t *testing.T) {
	rec := Record{}

	rec = Merge(rec, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			CompanyDescription: "Acme builds widgets.",
			CallAngles:         []string{"Angle A"},
		},
	})
	assert.Equal(t, "Acme builds widgets.", rec.CompanySnapshot)
	assert.Equal(t, []string{"Angle A"}, rec.CallAngles)

	// A later payload that omits those fields retains them.
	rec = Merge(rec, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			Competitors: []string{"Globex"},
		},
	})
	assert.Equal(t, "Acme builds widgets.", rec.CompanySnapshot)
	assert.Equal(t, []string{"Angle A"}, rec.CallAngles)
	assert.Equal(t, []string{"Globex"}, rec.Competitors)

	// Empty values never overwrite.
	rec = Merge(rec, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			CompanyDescription: "",
			CallAngles:         []string{},
			Competitors:        nil,
		},
	})
	assert.Equal(t, "Acme builds widgets.", rec.CompanySnapshot)
	assert.Equal(t, []string{"Angle A"}, rec.CallAngles)
	assert.Equal(t, []string{"Globex"}, rec.Competitors)
}

func TestMerge_LastNonEmptyValueWins(t *testing.T) {
	rec := Record{}
	payloads := []*profile.ContextPayload{
		{AIProfile: &profile.AIProfile{TargetAudience: "SMBs"}},
		{AIProfile: &profile.AIProfile{TargetAudience: "Mid-market ops teams"}},
		{AIProfile: &profile.AIProfile{DecisionMakers: []string{"VP Sales"}}},
	}
	for _, p := range payloads {
		rec = Merge(rec, p)
	}
	assert.Equal(t, "Mid-market ops teams", rec.TargetAudience)
	assert.Equal(t, []string{"VP Sales"}, rec.DecisionMakers)
}

func TestMerge_QualityScoreFloor(t *testing.T) {
	rec := Record{}

	rec = Merge(rec, &profile.ContextPayload{
		EnrichmentMeta: &profile.EnrichmentMeta{QualityScore: 0.6},
	})
	assert.Equal(t, 0.6, rec.QualityScore)

	// Omitted score does not regress to zero.
	rec = Merge(rec, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{CompanyDescription: "x"},
	})
	assert.Equal(t, 0.6, rec.QualityScore)

	// A lower score never replaces a higher one.
	rec = Merge(rec, &profile.ContextPayload{
		EnrichmentMeta: &profile.EnrichmentMeta{QualityScore: 0.4},
	})
	assert.Equal(t, 0.6, rec.QualityScore)

	rec = Merge(rec, &profile.ContextPayload{
		EnrichmentMeta: &profile.EnrichmentMeta{QualityScore: 0.9},
	})
	assert.Equal(t, 0.9, rec.QualityScore)
}

func TestMerge_MirrorsEnrichmentStatus(t *testing.T) {
	rec := Record{EnrichmentStatus: "retrying"}

	rec = Merge(rec, &profile.ContextPayload{
		EnrichmentMeta: &profile.EnrichmentMeta{Status: "in_progress"},
	})
	assert.Equal(t, "in_progress", rec.EnrichmentStatus)

	// Payload without a status keeps the previous one.
	rec = Merge(rec, &profile.ContextPayload{})
	assert.Equal(t, "in_progress", rec.EnrichmentStatus)
}

func TestMerge_Objections(t *testing.T) {
	rec := Merge(Record{}, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			ObjectionHandling: []profile.Objection{
				{Objection: "Too expensive", Response: "ROI within a quarter"},
			},
		},
	})
	assert.Len(t, rec.Objections, 1)
	assert.Equal(t, "Too expensive", rec.Objections[0].Objection)
}

func TestMerge_PureReducer(t *testing.T) {
	before := Record{
		CompanySnapshot: "original",
		CallAngles:      []string{"a"},
	}
	out := Merge(before, &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			CompanyDescription: "changed",
			CallAngles:         []string{"b", "c"},
		},
	})
	// Input record untouched.
	assert.Equal(t, "original", before.CompanySnapshot)
	assert.Equal(t, []string{"a"}, before.CallAngles)
	// Output does not alias the payload's slices.
	assert.Equal(t, "changed", out.CompanySnapshot)
	assert.Equal(t, []string{"b", "c"}, out.CallAngles)
}

func TestMerge_NilPayload(t *testing.T) {
	rec := Record{CompanySnapshot: "kept"}
	out := Merge(rec, nil)
	assert.Equal(t, "kept", out.CompanySnapshot)
}
