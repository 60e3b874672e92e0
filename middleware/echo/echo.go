// Package echo provides Echo middleware for feature gating
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumekit/entitlement/pkg/entitlement"
)

// FeatureExtractor extracts the feature name from an Echo context
// For example: "exports", "aiGenerations", "coverLetters"
type FeatureExtractor func(c echo.Context) string

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
	OnDenied func(c echo.Context, decision entitlement.Decision) error
}

// Middleware creates an Echo middleware that gates requests on feature
// availability. Decisions are made from the client's cached snapshot.
func Middleware(cfg Config) echo.MiddlewareFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Client == nil {
		panic("entitlement/echo: Config.Client is required")
	}
	if cfg.GetFeature == nil {
		panic("entitlement/echo: Config.GetFeature is required")
	}

	// Set defaults
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = http.StatusForbidden
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			feature := cfg.GetFeature(c)
			decision := cfg.Client.CheckFeature(feature)
			if !decision.Allowed {
				if cfg.OnDenied != nil {
					return cfg.OnDenied(c, decision)
				}
				return defaultDenied(c, decision, cfg.DeniedStatusCode)
			}

			return next(c)
		}
	}
}

func defaultDenied(c echo.Context, decision entitlement.Decision, statusCode int) error {
	body := map[string]interface{}{
		"error": decision.Message,
		"used":  decision.CurrentUsage,
	}
	if decision.Limit != nil {
		body["limit"] = *decision.Limit
	}
	return c.JSON(statusCode, body)
}

// Convenience extractors for Feature

// FixedFeature returns a FeatureExtractor that always returns a fixed feature name
func FixedFeature(feature string) FeatureExtractor {
	return func(echo.Context) string {
		return feature
	}
}

// FromContext returns a FeatureExtractor that gets the feature name from
// Echo context values, typically set by an earlier middleware via
// c.Set("Feature", "...").
func FromContext(key string) FeatureExtractor {
	return func(c echo.Context) string {
		if str, ok := c.Get(key).(string); ok {
			return str
		}
		return ""
	}
}

// FromHeader returns a FeatureExtractor that gets the feature name from a header
func FromHeader(headerName string) FeatureExtractor {
	return func(c echo.Context) string {
		return c.Request().Header.Get(headerName)
	}
}

// FromParam returns a FeatureExtractor that gets the feature name from a route parameter
func FromParam(paramName string) FeatureExtractor {
	return func(c echo.Context) string {
		return c.Param(paramName)
	}
}
