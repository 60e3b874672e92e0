package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func testAccount() Account {
	return Account{
		Stats: UsageStatsResponse{
			PlanTier:      "free",
			IsPremiumMode: true,
			Features: map[string]FeatureUsage{
				"exports": {CurrentUsage: 2, Limit: intPtr(3), Period: "monthly"},
			},
		},
		Limits: UsageLimitsResponse{
			PlanTier:      "free",
			IsPremiumMode: true,
			TrialEligible: true,
		},
	}
}

func doRequest(t *testing.T, h *Handler, method, target, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerStats(t *testing.T) {
	h := NewHandler(Config{})
	h.SetAccount("alice", testAccount())

	rec := doRequest(t, h, http.MethodGet, PathUsageStats, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats UsageStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.PlanTier != "free" {
		t.Errorf("plan tier = %q, want free", stats.PlanTier)
	}
	usage, ok := stats.Features["exports"]
	if !ok || usage.CurrentUsage != 2 {
		t.Errorf("unexpected exports usage: %+v", usage)
	}
}

func TestHandlerUnknownAccount(t *testing.T) {
	h := NewHandler(Config{})

	rec := doRequest(t, h, http.MethodGet, PathUsageStats, "nobody")
	if rec.Code != http.StatusNotFound {
		t.Errorf("stats for unknown account: got %d, want 404", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, PathTrialStart, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("trial start without credentials: got %d, want 401", rec.Code)
	}
}

func TestHandlerGuestSession(t *testing.T) {
	h := NewHandler(Config{})
	h.SetAccount("alice", testAccount())
	h.LinkSession("sess-1", "alice")

	rec := doRequest(t, h, http.MethodGet, PathUsageStats+"?"+SessionIDParam+"=sess-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for linked session, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, PathUsageStats+"?"+SessionIDParam+"=unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unlinked session, got %d", rec.Code)
	}
}

func TestHandlerTrialStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := NewHandler(Config{Now: func() time.Time { return now }})
	h.SetAccount("alice", testAccount())

	rec := doRequest(t, h, http.MethodPost, PathTrialStart, "alice")
	var result StartTrialResponse
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success {
		t.Fatalf("trial start failed: %s", result.Message)
	}

	rec = doRequest(t, h, http.MethodGet, PathTrialStatus, "alice")
	var trial TrialStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&trial); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !trial.IsActive || trial.ExpiresAt == nil {
		t.Fatalf("unexpected trial status: %+v", trial)
	}
	if want := now.Add(defaultTrialDuration); !trial.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", trial.ExpiresAt, want)
	}

	// A second start is refused and the account now reports a trial tier.
	rec = doRequest(t, h, http.MethodPost, PathTrialStart, "alice")
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Success {
		t.Error("second trial start should be refused")
	}

	rec = doRequest(t, h, http.MethodGet, PathUsageStats, "alice")
	var stats UsageStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.PlanTier != "trial" {
		t.Errorf("plan tier after trial start = %q, want trial", stats.PlanTier)
	}
}

func TestHandlerResolveBearer(t *testing.T) {
	h := NewHandler(Config{
		ResolveBearer: func(token string) string {
			if token == "secret" {
				return "alice"
			}
			return ""
		},
	})
	h.SetAccount("alice", testAccount())

	if rec := doRequest(t, h, http.MethodGet, PathUsageStats, "secret"); rec.Code != http.StatusOK {
		t.Errorf("mapped token: got %d, want 200", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, PathUsageStats, "bogus"); rec.Code != http.StatusNotFound {
		t.Errorf("unmapped token: got %d, want 404", rec.Code)
	}
}
