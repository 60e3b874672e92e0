// Package fiber provides Fiber middleware for feature gating
package fiber

import (
	"github.com/gofiber/fiber/v2"

	"github.com/resumekit/entitlement/pkg/entitlement"
)

// FeatureExtractor extracts the feature name from a Fiber context
// For example: "exports", "aiGenerations", "coverLetters"
type FeatureExtractor func(c *fiber.Ctx) string

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
	OnDenied func(c *fiber.Ctx, decision entitlement.Decision) error
}

// Middleware creates a Fiber middleware that gates requests on feature
// availability. Decisions are made from the client's cached snapshot.
func Middleware(cfg Config) fiber.Handler {
	// Validate required configuration at startup (fail fast)
	if cfg.Client == nil {
		panic("entitlement/fiber: Config.Client is required")
	}
	if cfg.GetFeature == nil {
		panic("entitlement/fiber: Config.GetFeature is required")
	}

	// Set defaults
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = fiber.StatusForbidden
	}

	return func(c *fiber.Ctx) error {
		feature := cfg.GetFeature(c)
		decision := cfg.Client.CheckFeature(feature)
		if !decision.Allowed {
			if cfg.OnDenied != nil {
				return cfg.OnDenied(c, decision)
			}
			return defaultDenied(c, decision, cfg.DeniedStatusCode)
		}

		return c.Next()
	}
}

func defaultDenied(c *fiber.Ctx, decision entitlement.Decision, statusCode int) error {
	body := fiber.Map{
		"error": decision.Message,
		"used":  decision.CurrentUsage,
	}
	if decision.Limit != nil {
		body["limit"] = *decision.Limit
	}
	return c.Status(statusCode).JSON(body)
}

// Convenience extractors for Feature

// FixedFeature returns a FeatureExtractor that always returns a fixed feature name
func FixedFeature(feature string) FeatureExtractor {
	return func(*fiber.Ctx) string {
		return feature
	}
}

// FromLocals returns a FeatureExtractor that gets the feature name from
// Fiber locals, typically set by an earlier middleware via
// c.Locals("Feature", "...").
func FromLocals(key string) FeatureExtractor {
	return func(c *fiber.Ctx) string {
		if str, ok := c.Locals(key).(string); ok {
			return str
		}
		return ""
	}
}

// FromHeader returns a FeatureExtractor that gets the feature name from a header
func FromHeader(headerName string) FeatureExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

// FromParam returns a FeatureExtractor that gets the feature name from a route parameter
func FromParam(paramName string) FeatureExtractor {
	return func(c *fiber.Ctx) string {
		return c.Params(paramName)
	}
}
