package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultTrialDuration = 7 * 24 * time.Hour

// Account is the entitlement dataset served for one principal or guest
// session by the stub Handler.
type Account struct {
	Stats  UsageStatsResponse
	Limits UsageLimitsResponse
	Trial  TrialStatusResponse
}

// Config holds stub Handler configuration.
type Config struct {
	// ResolveBearer maps a bearer token to an account ID. Return the empty
	// string for unknown tokens. Defaults to treating the token itself as
	// the account ID, which is convenient for tests.
	ResolveBearer func(token string) string

	// TrialDuration is the trial length granted by the trial/start endpoint
	// (default: 7 days).
	TrialDuration time.Duration

	// Now supplies the current time (default: time.Now). Tests may pin it.
	Now func() time.Time
}

// Handler serves the entitlement API from an in-memory dataset. It exists
// for local development and tests; the production API lives elsewhere.
type Handler struct {
	config Config

	mu       sync.RWMutex
	accounts map[string]*Account
	sessions map[string]string
}

// NewHandler creates a stub Handler.
func NewHandler(config Config) *Handler {
	if config.ResolveBearer == nil {
		config.ResolveBearer = func(token string) string { return token }
	}
	if config.TrialDuration == 0 {
		config.TrialDuration = defaultTrialDuration
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Handler{
		config:   config,
		accounts: make(map[string]*Account),
		sessions: make(map[string]string),
	}
}

// SetAccount stores the dataset served for an account ID.
func (h *Handler) SetAccount(id string, account Account) {
	h.mu.Lock()
	defer h.mu.Unlock()
	acc := account
	h.accounts[id] = &acc
}

// LinkSession maps a guest session identifier to an account ID.
func (h *Handler) LinkSession(sessionID, accountID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = accountID
}

// ServeHTTP dispatches the four entitlement endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == PathUsageStats:
		h.getStats(w, r)
	case r.Method == http.MethodGet && r.URL.Path == PathUsageLimits:
		h.getLimits(w, r)
	case r.Method == http.MethodGet && r.URL.Path == PathTrialStatus:
		h.getTrialStatus(w, r)
	case r.Method == http.MethodPost && r.URL.Path == PathTrialStart:
		h.startTrial(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolve(r)
	if !ok {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	h.mu.RLock()
	payload := account.Stats
	h.mu.RUnlock()
	writeJSON(w, payload)
}

func (h *Handler) getLimits(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolve(r)
	if !ok {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	h.mu.RLock()
	payload := account.Limits
	h.mu.RUnlock()
	writeJSON(w, payload)
}

func (h *Handler) getTrialStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveBearer(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.mu.RLock()
	payload := account.Trial
	h.mu.RUnlock()
	writeJSON(w, payload)
}

func (h *Handler) startTrial(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveBearer(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !account.Limits.TrialEligible || account.Limits.TrialActive {
		writeJSON(w, StartTrialResponse{
			Success: false,
			Message: "Trial is not available for this account",
		})
		return
	}

	now := h.config.Now().UTC()
	expires := now.Add(h.config.TrialDuration)
	account.Trial = TrialStatusResponse{
		HasTrial:  true,
		IsActive:  true,
		StartedAt: &now,
		ExpiresAt: &expires,
	}
	account.Limits.TrialEligible = false
	account.Limits.TrialActive = true
	account.Stats.PlanTier = "trial"
	active := true
	account.Stats.TrialActive = &active

	writeJSON(w, StartTrialResponse{Success: true, Message: "Trial started"})
}

// resolve finds the account for a request: bearer credential first, then
// the guest session query parameter.
func (h *Handler) resolve(r *http.Request) (*Account, bool) {
	if account, ok := h.resolveBearer(r); ok {
		return account, true
	}
	sessionID := r.URL.Query().Get(SessionIDParam)
	if sessionID == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	accountID, ok := h.sessions[sessionID]
	if !ok {
		return nil, false
	}
	account, ok := h.accounts[accountID]
	return account, ok
}

func (h *Handler) resolveBearer(r *http.Request) (*Account, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, false
	}
	accountID := h.config.ResolveBearer(strings.TrimPrefix(auth, "Bearer "))
	if accountID == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	account, ok := h.accounts[accountID]
	return account, ok
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
