// Package api defines the wire contract for the entitlement API and a stub
// Handler that serves it from an in-memory dataset for local development
// and tests. The production server is external to this module.
package api

import (
	"encoding/json"
	"time"
)

// FeatureUsage is the wire form of a single feature quota.
type FeatureUsage struct {
	CurrentUsage int    `json:"current_usage"`
	Limit        *int   `json:"limit"`
	Period       string `json:"period"`
	Unlimited    bool   `json:"unlimited"`
}

// UsageStatsResponse is the body of GET /api/usage/stats.
type UsageStatsResponse struct {
	PlanTier      string                  `json:"plan_tier"`
	IsPremiumMode bool                    `json:"is_premium_mode"`
	Features      map[string]FeatureUsage `json:"features"`
	Exports       *FeatureUsage           `json:"exports,omitempty"`
	TrialActive   *bool                   `json:"trial_active,omitempty"`
}

// UsageLimitsResponse is the body of GET /api/usage/limits. Limit
// descriptors are passed through opaquely.
type UsageLimitsResponse struct {
	PlanTier      string                     `json:"plan_tier"`
	IsPremiumMode bool                       `json:"is_premium_mode"`
	Limits        map[string]json.RawMessage `json:"limits"`
	TrialEligible bool                       `json:"trial_eligible"`
	TrialActive   bool                       `json:"trial_active"`
}

// TrialStatusResponse is the body of GET /api/usage/trial/status.
// Timestamps are RFC 3339.
type TrialStatusResponse struct {
	HasTrial  bool       `json:"has_trial"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	StartedAt *time.Time `json:"started_at"`
}

// StartTrialResponse is the body of POST /api/usage/trial/start. Message
// carries a human-readable reason when Success is false.
type StartTrialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Endpoint paths served by the entitlement API.
const (
	PathUsageStats  = "/api/usage/stats"
	PathUsageLimits = "/api/usage/limits"
	PathTrialStatus = "/api/usage/trial/status"
	PathTrialStart  = "/api/usage/trial/start"
)

// SessionIDParam is the query parameter carrying the guest session
// identifier when no bearer credential is attached.
const SessionIDParam = "session_id"
