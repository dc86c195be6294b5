package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/briefing-service/pkg/profile"
)

func TestClassify_StatusPartition(t *testing.T) {
	tests := []struct {
		status string
		want   Verdict
	}{
		{"complete", VerdictReady},
		{"live_research", VerdictReady},
		{"ok", VerdictReady},
		{"limited", VerdictReady},
		{"failed", VerdictFailed},
		{"timeout", VerdictFailed},
		{"error", VerdictFailed},
		{"in_progress", VerdictPending},
		{"pending", VerdictPending},
		{"retrying", VerdictPending},
		{"queued", VerdictPending},
		{"", VerdictPending},
		{"some_future_status", VerdictPending},
		{"COMPLETE", VerdictPending}, // vocabulary is case-sensitive
	}

	for _, tt := range tests {
		name := tt.status
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			p := &profile.ContextPayload{
				EnrichmentMeta: &profile.EnrichmentMeta{Status: tt.status},
			}
			assert.Equal(t, tt.want, Classify(p))
		})
	}
}

func TestClassify_ProfileEnrichedWins(t *testing.T) {
	// The boolean flag short-circuits even a pending status string.
	p := &profile.ContextPayload{
		ProfileEnriched: true,
		EnrichmentMeta:  &profile.EnrichmentMeta{Status: "in_progress"},
	}
	assert.Equal(t, VerdictReady, Classify(p))
}

func TestClassify_NestedMetaFallback(t *testing.T) {
	// Status only present under aiProfile.enrichmentMeta.
	p := &profile.ContextPayload{
		AIProfile: &profile.AIProfile{
			EnrichmentMeta: &profile.EnrichmentMeta{Status: "complete"},
		},
	}
	assert.Equal(t, VerdictReady, Classify(p))
}

func TestClassify_TopLevelMetaPreferred(t *testing.T) {
	p := &profile.ContextPayload{
		EnrichmentMeta: &profile.EnrichmentMeta{Status: "failed"},
		AIProfile: &profile.AIProfile{
			EnrichmentMeta: &profile.EnrichmentMeta{Status: "complete"},
		},
	}
	assert.Equal(t, VerdictFailed, Classify(p))
}

func TestClassify_EmptyPayload(t *testing.T) {
	assert.Equal(t, VerdictPending, Classify(nil))
	assert.Equal(t, VerdictPending, Classify(&profile.ContextPayload{}))
}
