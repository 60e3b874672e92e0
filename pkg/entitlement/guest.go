package entitlement

import (
	"context"
	"strconv"
	"strings"
)

// defaultGuestLimit applies to actions without an explicit cap.
const defaultGuestLimit = 1

// DefaultGuestLimits is the fixed per-action cap table for anonymous
// visitors. The caps are a soft nudge toward sign-up, not a security
// boundary; the server re-enforces real limits.
func DefaultGuestLimits() map[GuestAction]int {
	return map[GuestAction]int{
		GuestActionExportResume:       1,
		GuestActionSaveResume:         1,
		GuestActionSaveJobDescription: 1,
	}
}

// GuestLimiterConfig holds GuestLimiter configuration.
type GuestLimiterConfig struct {
	// Limits maps actions to their caps (default: DefaultGuestLimits).
	Limits map[GuestAction]int

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger

	// Metrics is used for tracking checks (default: NoopMetrics).
	Metrics Metrics
}

// GuestLimiter enforces small fixed caps on sensitive actions for
// anonymous visitors, entirely from local state with no network
// dependency. It owns the guestAction counters in the store; no other
// component mutates them.
type GuestLimiter struct {
	store   GuestStore
	limits  map[GuestAction]int
	log     Logger
	metrics Metrics
}

// NewGuestLimiter creates a limiter over the given store. A nil store is
// permitted and makes every check fail open, for execution contexts with
// no usable persistence.
func NewGuestLimiter(store GuestStore, config GuestLimiterConfig) *GuestLimiter {
	limits := config.Limits
	if limits == nil {
		limits = DefaultGuestLimits()
	}
	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	return &GuestLimiter{
		store:   store,
		limits:  limits,
		log:     logger,
		metrics: metrics,
	}
}

// ShouldPromptAuthentication reports whether action should be blocked and
// the visitor prompted to sign in. Authenticated callers and unavailable
// stores always pass (fail-open; the server re-validates regardless).
//
// This is a check, not a consume-then-check: a blocked call never advances
// the counter, and the counter is incremented only on the path that
// proceeds.
func (l *GuestLimiter) ShouldPromptAuthentication(ctx context.Context, action GuestAction, isAuthenticated bool) bool {
	if isAuthenticated || l.store == nil {
		return false
	}

	key := GuestActionKey(action)
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Warn("guest store read failed, allowing action",
			Field{Key: "action", Value: string(action)}, errField(err))
		return false
	}

	count := 0
	if ok {
		parsed, convErr := strconv.Atoi(strings.TrimSpace(raw))
		if convErr == nil && parsed > 0 {
			count = parsed
		}
	}

	if count >= l.limitFor(action) {
		l.metrics.RecordGuestPrompt(string(action), true)
		return true
	}

	if err := l.store.Set(ctx, key, strconv.Itoa(count+1)); err != nil {
		l.log.Warn("guest store write failed, allowing action",
			Field{Key: "action", Value: string(action)}, errField(err))
	}
	l.metrics.RecordGuestPrompt(string(action), false)
	return false
}

// ResetGuestActionCounters clears every tracked counter. Invoke it once a
// guest successfully authenticates, so a returning authenticated user never
// inherits stale guest caps.
func (l *GuestLimiter) ResetGuestActionCounters(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	keys := make([]string, 0, len(l.limits))
	for action := range l.limits {
		keys = append(keys, GuestActionKey(action))
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		l.log.Error("failed to reset guest action counters", errField(err))
		return err
	}
	return nil
}

func (l *GuestLimiter) limitFor(action GuestAction) int {
	if limit, ok := l.limits[action]; ok {
		return limit
	}
	return defaultGuestLimit
}
