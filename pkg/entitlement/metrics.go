package entitlement

import "time"

// Metrics defines the interface for tracking entitlement operations.
type Metrics interface {
	// RecordFetch records a fetch against the entitlement API.
	// Resource is "stats", "limits" or "trial_status".
	RecordFetch(resource string, duration time.Duration, err error)

	// RecordGateDecision records a feature gate evaluation.
	RecordGateDecision(feature string, allowed bool)

	// RecordGuestPrompt records a guest limiter check. Blocked is true when
	// the caller should prompt for authentication.
	RecordGuestPrompt(action string, blocked bool)

	// RecordTrialStart records a trial start attempt.
	RecordTrialStart(success bool)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordFetch(resource string, duration time.Duration, err error) {}
func (n *NoopMetrics) RecordGateDecision(feature string, allowed bool)                {}
func (n *NoopMetrics) RecordGuestPrompt(action string, blocked bool)                  {}
func (n *NoopMetrics) RecordTrialStart(success bool)                                  {}
