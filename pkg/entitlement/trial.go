package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resumekit/entitlement/pkg/api"
)

// Start trial rejection messages for conditions detected client-side.
const (
	msgSignInForTrial    = "Please sign in to start a trial"
	msgTrialsUnavailable = "Trials are not available"
	msgTrialStartFailed  = "Failed to start trial. Please try again."
)

// FetchTrialStatus retrieves the trial lifecycle snapshot. Trials are not
// offered to guests, so the call is a guarded no-op unless enforcement is
// enabled and the principal is authenticated.
func (c *Client) FetchTrialStatus(ctx context.Context) error {
	if !c.enforced {
		return nil
	}
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	c.trialGen++
	gen := c.trialGen
	key := c.flightKey(resourceTrialStatus)
	c.mu.Unlock()

	start := time.Now()
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		var payload api.TrialStatusResponse
		if err := c.getAuthorized(ctx, api.PathTrialStatus, token, &payload); err != nil {
			return nil, err
		}
		return trialFromWire(payload), nil
	})
	c.metrics.RecordFetch(resourceTrialStatus, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.trialGen {
		c.log.Debug("discarding stale trial status response")
		return nil
	}
	if err != nil {
		c.log.Warn("failed to fetch trial status", errField(err))
		return err
	}
	trial := v.(TrialStatus)
	c.trial = &trial
	return nil
}

// StartTrial requests a trial for the authenticated principal. Guest or
// unenforced contexts are rejected locally with a human-readable reason and
// no network call. On server success the trial status is refetched before
// returning, so the caller observes the post-trial snapshot. The call is
// not idempotent at the transport layer; the server may reject a second
// start while one is already active.
func (c *Client) StartTrial(ctx context.Context) StartTrialResult {
	if !c.enforced {
		return StartTrialResult{Success: false, Message: msgTrialsUnavailable}
	}
	token, err := c.bearerToken(ctx)
	if err != nil {
		return StartTrialResult{Success: false, Message: msgSignInForTrial}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+api.PathTrialStart, http.NoBody)
	if err != nil {
		return StartTrialResult{Success: false, Message: msgTrialStartFailed}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error("trial start request failed", errField(err))
		c.metrics.RecordTrialStart(false)
		return StartTrialResult{Success: false, Message: msgTrialStartFailed}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Error("trial start rejected", Field{Key: "status", Value: res.StatusCode})
		c.metrics.RecordTrialStart(false)
		return StartTrialResult{Success: false, Message: msgTrialStartFailed}
	}

	var payload api.StartTrialResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.RecordTrialStart(false)
		return StartTrialResult{Success: false, Message: msgTrialStartFailed}
	}
	c.metrics.RecordTrialStart(payload.Success)
	if !payload.Success {
		// Application-level rejection: surface the server message verbatim
		// and leave all cached state untouched.
		return StartTrialResult{Success: false, Message: payload.Message}
	}

	if err := c.FetchTrialStatus(ctx); err != nil {
		c.log.Warn("trial started but status refresh failed", errField(err))
	}
	message := payload.Message
	if message == "" {
		message = "Trial started"
	}
	return StartTrialResult{Success: true, Message: message}
}

// CheckTrialEligibility probes eligibility without touching cached state.
// It returns false on any network failure or non-authenticated condition
// rather than an error, so it is safe to call unconditionally from
// rendering logic.
func (c *Client) CheckTrialEligibility(ctx context.Context) bool {
	if !c.enforced {
		return false
	}
	token, err := c.bearerToken(ctx)
	if err != nil {
		return false
	}

	var payload api.UsageLimitsResponse
	if err := c.getAuthorized(ctx, api.PathUsageLimits, token, &payload); err != nil {
		c.log.Debug("trial eligibility probe failed", errField(err))
		return false
	}
	return payload.TrialEligible && !payload.TrialActive
}

// TrialStatus returns a copy of the cached trial snapshot, or nil when no
// fetch has succeeded yet.
func (c *Client) TrialStatus() *TrialStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.trial == nil {
		return nil
	}
	trial := *c.trial
	return &trial
}

// TrialState derives the lifecycle position from the cached trial and
// limits snapshots: no_trial -> eligible -> active -> expired.
func (c *Client) TrialState() TrialState {
	c.mu.RLock()
	trial := c.trial
	limits := c.limits
	c.mu.RUnlock()

	if trial != nil {
		switch {
		case trial.IsActive:
			return TrialStateActive
		case trial.HasTrial:
			return TrialStateExpired
		}
	}
	if limits != nil && limits.TrialEligible {
		return TrialStateEligible
	}
	return TrialStateNone
}

// getAuthorized issues a GET with an explicit bearer credential, bypassing
// the guest fallback used by get.
func (c *Client) getAuthorized(ctx context.Context, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("entitlement API error: status %d, body: %s", res.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func trialFromWire(w api.TrialStatusResponse) TrialStatus {
	return TrialStatus{
		HasTrial:  w.HasTrial,
		IsActive:  w.IsActive,
		ExpiresAt: w.ExpiresAt,
		StartedAt: w.StartedAt,
	}
}
