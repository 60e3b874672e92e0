package gin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gongin "github.com/gin-gonic/gin"

	"github.com/resumekit/entitlement/pkg/api"
	"github.com/resumekit/entitlement/pkg/entitlement"
)

func intPtr(n int) *int { return &n }

func setupClient(t *testing.T, features map[string]api.FeatureUsage) *entitlement.Client {
	t.Helper()

	backend := api.NewHandler(api.Config{})
	backend.SetAccount("alice", api.Account{
		Stats: api.UsageStatsResponse{PlanTier: "free", Features: features},
	})
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

func setupRouter(client *entitlement.Client, cfg Config) *gongin.Engine {
	gongin.SetMode(gongin.TestMode)
	cfg.Client = client
	router := gongin.New()
	router.POST("/export", Middleware(cfg), func(c *gongin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestMiddleware_Allowed(t *testing.T) {
	client := setupClient(t, map[string]api.FeatureUsage{
		"exports": {CurrentUsage: 0, Limit: intPtr(3), Period: "monthly"},
	})
	router := setupRouter(client, Config{GetFeature: FixedFeature("exports")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_Denied(t *testing.T) {
	client := setupClient(t, map[string]api.FeatureUsage{
		"exports": {CurrentUsage: 3, Limit: intPtr(3), Period: "monthly"},
	})
	router := setupRouter(client, Config{GetFeature: FixedFeature("exports")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestMiddleware_CustomStatusAndHeader(t *testing.T) {
	client := setupClient(t, map[string]api.FeatureUsage{
		"exports": {CurrentUsage: 3, Limit: intPtr(3), Period: "monthly"},
	})
	router := setupRouter(client, Config{
		GetFeature:       FromHeader("X-Feature"),
		DeniedStatusCode: http.StatusPaymentRequired,
	})

	req := httptest.NewRequest(http.MethodPost, "/export", nil)
	req.Header.Set("X-Feature", "exports")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", rec.Code)
	}
}

func TestMiddleware_PanicsOnMissingConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing Client")
		}
	}()
	Middleware(Config{GetFeature: FixedFeature("exports")})
}
