// Package gin provides Gin middleware for feature gating
package gin

import (
	"net/http"

	gongin "github.com/gin-gonic/gin"

	"github.com/resumekit/entitlement/pkg/entitlement"
)

// FeatureExtractor extracts the feature name from a Gin context
// For example: "exports", "aiGenerations", "coverLetters"
type FeatureExtractor func(c *gongin.Context) string

// Config holds middleware configuration
type Config struct {
	// Client is the entitlement client instance
	Client *entitlement.Client

	// GetFeature extracts the feature name from the context (required)
	GetFeature FeatureExtractor

	// DeniedStatusCode is the HTTP status code returned when the feature
	// is not available
	// Default: 403 (Forbidden)
	DeniedStatusCode int

	// OnDenied is called when the feature is not available
	// If nil, uses default response: DeniedStatusCode JSON with the gate message
	OnDenied func(c *gongin.Context, decision entitlement.Decision)
}

// Middleware creates a Gin middleware that gates requests on feature
// availability. Decisions are made from the client's cached snapshot.
func Middleware(cfg Config) gongin.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Client == nil {
		panic("entitlement/gin: Config.Client is required")
	}
	if cfg.GetFeature == nil {
		panic("entitlement/gin: Config.GetFeature is required")
	}

	// Set defaults
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = http.StatusForbidden
	}

	return func(c *gongin.Context) {
		feature := cfg.GetFeature(c)
		decision := cfg.Client.CheckFeature(feature)
		if !decision.Allowed {
			if cfg.OnDenied != nil {
				cfg.OnDenied(c, decision)
			} else {
				defaultDenied(c, decision, cfg.DeniedStatusCode)
			}
			c.Abort()
			return
		}

		c.Next()
	}
}

func defaultDenied(c *gongin.Context, decision entitlement.Decision, statusCode int) {
	body := gongin.H{
		"error": decision.Message,
		"used":  decision.CurrentUsage,
	}
	if decision.Limit != nil {
		body["limit"] = *decision.Limit
	}
	c.JSON(statusCode, body)
}

// Convenience extractors for Feature

// FixedFeature returns a FeatureExtractor that always returns a fixed feature name
func FixedFeature(feature string) FeatureExtractor {
	return func(*gongin.Context) string {
		return feature
	}
}

// FromContext returns a FeatureExtractor that gets the feature name from
// Gin context values, typically set by an earlier middleware via
// c.Set("Feature", "...").
func FromContext(key string) FeatureExtractor {
	return func(c *gongin.Context) string {
		if val, exists := c.Get(key); exists {
			if str, ok := val.(string); ok {
				return str
			}
		}
		return ""
	}
}

// FromHeader returns a FeatureExtractor that gets the feature name from a header
func FromHeader(headerName string) FeatureExtractor {
	return func(c *gongin.Context) string {
		return c.GetHeader(headerName)
	}
}

// FromParam returns a FeatureExtractor that gets the feature name from a route parameter
func FromParam(paramName string) FeatureExtractor {
	return func(c *gongin.Context) string {
		return c.Param(paramName)
	}
}
