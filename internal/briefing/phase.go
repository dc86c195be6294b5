package briefing

// Phase is the coarse onboarding phase derived from record state. It carries
// no state of its own; the UI drives its stepper entirely off this projection
// plus the cosmetic timeline step.
type Phase string

const (
	PhaseSignup   Phase = "signup"
	PhaseBriefing Phase = "briefing"
	PhaseComplete Phase = "complete"
)

// PhaseOf projects a record's status onto the onboarding phase.
func PhaseOf(rec Record) Phase {
	switch rec.Status {
	case StatusPolling:
		return PhaseBriefing
	case StatusReady, StatusTimeout:
		return PhaseComplete
	default:
		return PhaseSignup
	}
}
