package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resumekit/entitlement/pkg/api"
	"github.com/resumekit/entitlement/pkg/entitlement"
	"github.com/resumekit/entitlement/store/memory"
)

func intPtr(n int) *int { return &n }

// Test helper to create a client with a fetched snapshot
func setupClient(t *testing.T, account api.Account) *entitlement.Client {
	t.Helper()

	backend := api.NewHandler(api.Config{})
	backend.SetAccount("alice", account)
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client, err := entitlement.New(entitlement.Config{
		BaseURL:  server.URL,
		Tokens:   entitlement.StaticTokenSource("alice"),
		Enforced: true,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if err := client.FetchUsageStats(context.Background()); err != nil {
		t.Fatalf("Failed to fetch stats: %v", err)
	}
	return client
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Allowed(t *testing.T) {
	client := setupClient(t, api.Account{
		Stats: api.UsageStatsResponse{
			PlanTier: "free",
			Features: map[string]api.FeatureUsage{
				"exports": {CurrentUsage: 0, Limit: intPtr(3), Period: "monthly"},
			},
		},
	})

	handler := Middleware(Config{
		Client:     client,
		GetFeature: FixedFeature("exports"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_Denied(t *testing.T) {
	client := setupClient(t, api.Account{
		Stats: api.UsageStatsResponse{
			PlanTier: "free",
			Features: map[string]api.FeatureUsage{
				"exports": {CurrentUsage: 3, Limit: intPtr(3), Period: "monthly"},
			},
		},
	})

	handler := Middleware(Config{
		Client:     client,
		GetFeature: FixedFeature("exports"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestMiddleware_OnDenied(t *testing.T) {
	client := setupClient(t, api.Account{
		Stats: api.UsageStatsResponse{
			PlanTier: "free",
			Features: map[string]api.FeatureUsage{
				"exports": {CurrentUsage: 3, Limit: intPtr(3), Period: "monthly"},
			},
		},
	})

	var denied entitlement.Decision
	handler := Middleware(Config{
		Client:     client,
		GetFeature: FixedFeature("exports"),
		OnDenied: func(w http.ResponseWriter, r *http.Request, decision entitlement.Decision) {
			denied = decision
			w.WriteHeader(http.StatusPaymentRequired)
		},
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected custom status 402, got %d", rec.Code)
	}
	if denied.Allowed || denied.Message == "" {
		t.Errorf("unexpected decision passed to hook: %+v", denied)
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	client := setupClient(t, api.Account{
		Stats: api.UsageStatsResponse{
			PlanTier: "premium",
			Features: map[string]api.FeatureUsage{
				"exports": {Unlimited: true},
			},
		},
	})

	handler := Middleware(Config{
		Client:     client,
		GetFeature: FromContext(FeatureKey),
	})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/export", nil)
	req = req.WithContext(WithFeature(req.Context(), "exports"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGuestMiddleware(t *testing.T) {
	limiter := entitlement.NewGuestLimiter(memory.New(), entitlement.GuestLimiterConfig{})

	handler := GuestMiddleware(GuestConfig{
		Limiter:         limiter,
		GetAction:       FixedAction(string(entitlement.GuestActionExportResume)),
		IsAuthenticated: BearerPresent(),
	})(okHandler())

	// First anonymous request consumes the free allowance.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first guest request: expected 200, got %d", rec.Code)
	}

	// Second anonymous request is asked to sign in.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second guest request: expected 401, got %d", rec.Code)
	}

	// Authenticated requests bypass the limiter entirely.
	req := httptest.NewRequest(http.MethodPost, "/export", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated request: expected 200, got %d", rec.Code)
	}
}
