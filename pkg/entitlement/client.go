package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/resumekit/entitlement/pkg/api"
)

const defaultHTTPTimeout = 10 * time.Second

// Metric resource labels for RecordFetch.
const (
	resourceStats       = "stats"
	resourceLimits      = "limits"
	resourceTrialStatus = "trial_status"
)

// Client fetches and caches server-issued entitlement truth. The cached
// snapshots are single-writer (the Client), multi-reader: any number of
// gate evaluations may read them concurrently. A snapshot survives failed
// refreshes; it is only ever replaced wholesale by a successful fetch.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	store    GuestStore
	enforced bool
	log      Logger
	metrics  Metrics

	// flight collapses concurrent identical fetches into one request.
	// Keys are scoped by principal (see flightKey), so a fetch issued after
	// a principal change can never join a request still in flight for the
	// previous principal.
	flight singleflight.Group

	mu        sync.RWMutex
	stats     *UsageStats
	limits    *UsageLimits
	trial     *TrialStatus
	statsErr  error
	loading   bool
	principal string

	// Per-resource generations. A response is discarded unless its
	// generation is the latest issued, so an older request that completes
	// late can never overwrite a newer snapshot.
	statsGen  uint64
	limitsGen uint64
	trialGen  uint64
}

// New creates a Client from config. The Client performs no I/O until a
// fetch method is called.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	tokens := config.Tokens
	if tokens == nil {
		tokens = guestTokenSource{}
	}
	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}

	return &Client{
		baseURL:  config.BaseURL,
		http:     httpClient,
		tokens:   tokens,
		store:    config.Store,
		enforced: config.Enforced,
		log:      logger,
		metrics:  metrics,
		loading:  config.Enforced,
	}, nil
}

// Enforced reports whether quota enforcement is active for this Client.
func (c *Client) Enforced() bool {
	return c.enforced
}

// FetchUsageStats retrieves the usage snapshot for the current principal.
// When enforcement is disabled it completes immediately, leaving any
// previous snapshot untouched and clearing the loading state. On failure
// the previous snapshot is preserved and the error is recorded; there is
// no automatic retry.
func (c *Client) FetchUsageStats(ctx context.Context) error {
	if !c.enforced {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.loading = true
	c.statsGen++
	gen := c.statsGen
	key := c.flightKey(resourceStats)
	c.mu.Unlock()

	start := time.Now()
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		var payload api.UsageStatsResponse
		if err := c.get(ctx, api.PathUsageStats, &payload); err != nil {
			return nil, err
		}
		return statsFromWire(payload), nil
	})
	c.metrics.RecordFetch(resourceStats, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if gen != c.statsGen {
		// A newer fetch has been issued since; this response is stale.
		c.log.Debug("discarding stale usage stats response")
		return nil
	}
	if err != nil {
		c.statsErr = err
		c.log.Error("failed to fetch usage stats", errField(err))
		return err
	}
	stats := v.(UsageStats)
	c.stats = &stats
	c.statsErr = nil
	return nil
}

// FetchUsageLimits retrieves the eligibility snapshot. Limits are advisory
// rather than an enforcement gate, so failures are logged but do not set
// the Client's error state.
func (c *Client) FetchUsageLimits(ctx context.Context) error {
	if !c.enforced {
		return nil
	}

	c.mu.Lock()
	c.limitsGen++
	gen := c.limitsGen
	key := c.flightKey(resourceLimits)
	c.mu.Unlock()

	start := time.Now()
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		var payload api.UsageLimitsResponse
		if err := c.get(ctx, api.PathUsageLimits, &payload); err != nil {
			return nil, err
		}
		return limitsFromWire(payload), nil
	})
	c.metrics.RecordFetch(resourceLimits, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.limitsGen {
		c.log.Debug("discarding stale usage limits response")
		return nil
	}
	if err != nil {
		c.log.Warn("failed to fetch usage limits", errField(err))
		return err
	}
	limits := v.(UsageLimits)
	c.limits = &limits
	return nil
}

// Refresh triggers both fetches concurrently. Call it after any action
// expected to change usage, such as consuming a feature. The returned error
// reflects the stats fetch only: limits are advisory, and a limits failure
// is logged inside FetchUsageLimits without cancelling or failing the
// stats fetch.
func (c *Client) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.FetchUsageStats(ctx) })
	g.Go(func() error {
		// Logged inside; must not abort or outrank the stats fetch.
		_ = c.FetchUsageLimits(ctx)
		return nil
	})
	return g.Wait()
}

// SetPrincipal records the current authenticated principal. The identity
// layer should invoke it on sign-in, sign-out and token-subject changes.
// Snapshots are reset and refetched only on a genuine transition, never on
// repeated notifications for the same principal.
func (c *Client) SetPrincipal(ctx context.Context, principal string) error {
	c.mu.Lock()
	if c.principal == principal {
		c.mu.Unlock()
		return nil
	}
	c.principal = principal
	c.stats = nil
	c.limits = nil
	c.trial = nil
	c.statsErr = nil
	c.loading = c.enforced
	// Invalidate in-flight responses from the previous principal.
	c.statsGen++
	c.limitsGen++
	c.trialGen++
	c.mu.Unlock()

	c.log.Info("principal changed, refreshing entitlements")
	return c.Refresh(ctx)
}

// UsageStats returns a copy of the cached usage snapshot, or nil when no
// fetch has succeeded yet. Callers must treat a nil snapshot as "unknown",
// not as "unlimited".
func (c *Client) UsageStats() *UsageStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.stats)
}

// UsageLimits returns a copy of the cached eligibility snapshot, or nil.
func (c *Client) UsageLimits() *UsageLimits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyLimits(c.limits)
}

// Loading reports whether the first stats fetch is still outstanding.
func (c *Client) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the error recorded by the most recent stats fetch, or nil.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsErr
}

// CheckFeature evaluates the feature gate against the cached snapshot.
func (c *Client) CheckFeature(feature string) Decision {
	c.mu.RLock()
	stats := c.stats
	c.mu.RUnlock()

	d := CheckFeatureAvailability(feature, stats, c.enforced)
	c.metrics.RecordGateDecision(feature, d.Allowed)
	return d
}

// get issues an authorized GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
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

// authorize attaches a bearer credential when one resolves, or the guest
// session identifier as a query parameter when the principal is a guest.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	if err != nil && err != ErrNotAuthenticated {
		// Token resolution failed for a reason other than being a guest.
		// Fall through to the guest path; the server will reject requests
		// that genuinely require authentication.
		c.log.Debug("token resolution failed, proceeding as guest", errField(err))
	}

	if c.store == nil {
		return nil
	}
	sessionID, ok, err := c.store.Get(ctx, GuestSessionKey)
	if err != nil {
		c.log.Debug("guest session lookup failed", errField(err))
		return nil
	}
	if ok && sessionID != "" {
		q := req.URL.Query()
		q.Set(api.SessionIDParam, sessionID)
		req.URL.RawQuery = q.Encode()
	}
	return nil
}

// flightKey builds the singleflight key for a resource, scoped to the
// current principal. Callers must hold c.mu.
func (c *Client) flightKey(resource string) string {
	return resource + "|" + c.principal
}

// bearerToken resolves the current credential, or ErrNotAuthenticated.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// Wire normalization. The Client owns the translation from the api package
// so every consumer sees only the core data model.

func statsFromWire(w api.UsageStatsResponse) UsageStats {
	features := make(map[string]FeatureUsage, len(w.Features))
	for key, f := range w.Features {
		features[key] = featureFromWire(f)
	}
	stats := UsageStats{
		PlanTier:      planTierFromWire(w.PlanTier),
		IsPremiumMode: w.IsPremiumMode,
		Features:      features,
		TrialActive:   w.TrialActive,
	}
	if w.Exports != nil {
		exports := featureFromWire(*w.Exports)
		stats.Exports = &exports
	}
	return stats
}

func limitsFromWire(w api.UsageLimitsResponse) UsageLimits {
	return UsageLimits{
		PlanTier:      planTierFromWire(w.PlanTier),
		IsPremiumMode: w.IsPremiumMode,
		Limits:        w.Limits,
		TrialEligible: w.TrialEligible,
		TrialActive:   w.TrialActive,
	}
}

func featureFromWire(w api.FeatureUsage) FeatureUsage {
	f := FeatureUsage{
		CurrentUsage: w.CurrentUsage,
		Period:       PeriodType(w.Period),
		Unlimited:    w.Unlimited,
	}
	if w.Limit != nil {
		limit := *w.Limit
		f.Limit = &limit
	}
	return f
}

func planTierFromWire(tier string) PlanTier {
	if tier == "" {
		return PlanTierFree
	}
	return PlanTier(tier)
}

func copyStats(s *UsageStats) *UsageStats {
	if s == nil {
		return nil
	}
	out := *s
	out.Features = make(map[string]FeatureUsage, len(s.Features))
	for key, f := range s.Features {
		out.Features[key] = f
	}
	if s.Exports != nil {
		exports := *s.Exports
		out.Exports = &exports
	}
	return &out
}

func copyLimits(l *UsageLimits) *UsageLimits {
	if l == nil {
		return nil
	}
	out := *l
	out.Limits = make(map[string]json.RawMessage, len(l.Limits))
	for key, raw := range l.Limits {
		out.Limits[key] = raw
	}
	return &out
}
