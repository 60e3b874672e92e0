// Package entitlement is a client-side model of plan entitlements and
// per-feature usage quotas. It fetches usage snapshots from an entitlement
// API, derives trial lifecycle state, evaluates feature gates against the
// cached snapshot, and enforces small local caps for anonymous guests.
package entitlement

import (
	"encoding/json"
	"math"
	"net/http"
	"time"
)

// PlanTier identifies a principal's subscription level. The value is owned
// by the server and opaque to this package beyond the free tier.
type PlanTier string

const (
	// PlanTierFree is the default tier for principals without a subscription.
	PlanTierFree PlanTier = "free"
	// PlanTierTrial is a time-boxed elevation to premium entitlement.
	PlanTierTrial PlanTier = "trial"
	// PlanTierPremium is a paid subscription tier.
	PlanTierPremium PlanTier = "premium"
)

// PeriodType defines the window a feature quota applies to.
type PeriodType string

const (
	// PeriodTypeSession scopes a quota to the current session.
	PeriodTypeSession PeriodType = "session"
	// PeriodTypeDaily scopes a quota to the current day.
	PeriodTypeDaily PeriodType = "daily"
	// PeriodTypeMonthly scopes a quota to the current month.
	PeriodTypeMonthly PeriodType = "monthly"
)

// FeatureExports is the feature key for resume exports. It is the only key
// with a legacy fallback slot at the top level of UsageStats.
const FeatureExports = "exports"

// FeatureUsage describes consumption against a single feature quota.
// A nil Limit means the feature is unlimited, whether or not the Unlimited
// flag is set; the flag is advisory and Unlimited == true implies Limit == nil.
type FeatureUsage struct {
	CurrentUsage int        `json:"current_usage"`
	Limit        *int       `json:"limit"`
	Period       PeriodType `json:"period"`
	Unlimited    bool       `json:"unlimited"`
}

// UsageStats is a snapshot of a principal's consumption across all metered
// features. It is owned by the Client and replaced wholesale on each
// successful fetch, never merged field-by-field with a stale copy.
type UsageStats struct {
	PlanTier      PlanTier                `json:"plan_tier"`
	IsPremiumMode bool                    `json:"is_premium_mode"`
	Features      map[string]FeatureUsage `json:"features"`

	// Exports is a legacy overflow slot consulted only when Features has no
	// "exports" entry. The server contract is migrating toward always
	// populating Features["exports"].
	Exports *FeatureUsage `json:"exports,omitempty"`

	TrialActive *bool `json:"trial_active,omitempty"`
}

// UsageLimits is the companion snapshot describing eligibility rather than
// consumption. Limit descriptors are opaque to this package.
type UsageLimits struct {
	PlanTier      PlanTier                   `json:"plan_tier"`
	IsPremiumMode bool                       `json:"is_premium_mode"`
	Limits        map[string]json.RawMessage `json:"limits"`
	TrialEligible bool                       `json:"trial_eligible"`
	TrialActive   bool                       `json:"trial_active"`
}

// TrialStatus reports a principal's trial lifecycle as issued by the server.
type TrialStatus struct {
	HasTrial  bool       `json:"has_trial"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	StartedAt *time.Time `json:"started_at"`
}

// DaysRemaining returns the number of whole or partial days until the trial
// expires, relative to now. It is zero whenever the trial is inactive, has
// no expiry, or has already expired.
func (s *TrialStatus) DaysRemaining(now time.Time) int {
	if s == nil || !s.IsActive || s.ExpiresAt == nil {
		return 0
	}
	left := s.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// TrialState is the derived position in the trial lifecycle.
type TrialState string

const (
	// TrialStateNone means no trial has been offered or trials are disabled.
	TrialStateNone TrialState = "no_trial"
	// TrialStateEligible means the principal may start a trial.
	TrialStateEligible TrialState = "eligible"
	// TrialStateActive means a trial is currently running.
	TrialStateActive TrialState = "active"
	// TrialStateExpired means a trial was used and has ended.
	TrialStateExpired TrialState = "expired"
)

// StartTrialResult reports the outcome of a StartTrial call. Message carries
// the server-supplied reason on application-level rejection.
type StartTrialResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Decision is the outcome of a feature gate evaluation. A nil Limit means
// the feature is unlimited for this principal.
type Decision struct {
	Allowed      bool       `json:"allowed"`
	CurrentUsage int        `json:"current_usage"`
	Limit        *int       `json:"limit"`
	Period       PeriodType `json:"period,omitempty"`
	Message      string     `json:"message,omitempty"`
}

// GuestAction identifies an action metered for anonymous visitors.
type GuestAction string

const (
	// GuestActionExportResume is a resume export by a guest.
	GuestActionExportResume GuestAction = "exportResume"
	// GuestActionSaveResume is a resume save by a guest.
	GuestActionSaveResume GuestAction = "saveResume"
	// GuestActionSaveJobDescription is a job description save by a guest.
	GuestActionSaveJobDescription GuestAction = "saveJobDescription"
)

// Config holds Client configuration.
type Config struct {
	// BaseURL is the entitlement API base URL (required).
	BaseURL string

	// HTTPClient is used for all requests (default: 10s timeout client).
	HTTPClient *http.Client

	// Tokens supplies short-lived bearer credentials for the current
	// principal. A nil source or ErrNotAuthenticated means guest.
	Tokens TokenSource

	// Store is the durable guest key space. The Client only reads the guest
	// session identifier from it; it may be nil for authenticated-only use.
	Store GuestStore

	// Enforced enables quota enforcement. When false every fetch is a no-op
	// and every gate decision is allowed; the server remains the authority
	// for hard limits.
	Enforced bool

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger

	// Metrics is used for tracking fetches and decisions (default: NoopMetrics).
	Metrics Metrics
}
