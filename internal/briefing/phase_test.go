package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   Phase
	}{
		{"idle", StatusIdle, PhaseSignup},
		{"polling", StatusPolling, PhaseBriefing},
		{"ready", StatusReady, PhaseComplete},
		{"timeout", StatusTimeout, PhaseComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseOf(Record{Status: tt.status}))
		})
	}
}
