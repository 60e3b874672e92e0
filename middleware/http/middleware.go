// Package http provides HTTP middleware for feature gating
package http

import (
	"context"
	"net/http"

	"github.com/resumekit/entitlement/pkg/entitlement"
)

// FeatureExtractor extracts the feature name from an HTTP request
// For example: "exports", "aiGenerations", "coverLetters"
type FeatureExtractor func(r *http.Request) string

// ActionExtractor extracts the guest action name from an HTTP request
type ActionExtractor func(r *http.Request) string

// AuthChecker reports whether the request carries an authenticated principal
type AuthChecker func(r *http.Request) bool

// Config holds middleware configuration
type Config struct {
	// Client is the entitlement client instance
	Client *entitlement.Client

	// GetFeature extracts the feature name from the request (required)
	GetFeature FeatureExtractor

	// OnDenied is called when the feature is not available
	// If nil, returns 403 Forbidden with the gate message
	OnDenied func(w http.ResponseWriter, r *http.Request, decision entitlement.Decision)
}

// Middleware creates an HTTP middleware that gates requests on feature
// availability. The decision is made from the client's cached snapshot;
// the middleware never blocks on a network call.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			feature := config.GetFeature(r)
			decision := config.Client.CheckFeature(feature)
			if !decision.Allowed {
				if config.OnDenied != nil {
					config.OnDenied(w, r, decision)
				} else {
					http.Error(w, decision.Message, http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc creates an HTTP middleware that gates requests on feature
// availability (HandlerFunc version)
func HandlerFunc(config Config) func(http.HandlerFunc) http.HandlerFunc {
	middleware := Middleware(config)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			middleware(next).ServeHTTP(w, r)
		}
	}
}

// GuestConfig holds guest limiter middleware configuration
type GuestConfig struct {
	// Limiter is the guest action limiter instance
	Limiter *entitlement.GuestLimiter

	// GetAction extracts the guest action from the request (required)
	GetAction ActionExtractor

	// IsAuthenticated reports whether the request is authenticated (required)
	IsAuthenticated AuthChecker

	// OnPrompt is called when the guest should be asked to sign in
	// If nil, returns 401 Unauthorized
	OnPrompt func(w http.ResponseWriter, r *http.Request, action string)
}

// GuestMiddleware creates an HTTP middleware that asks anonymous visitors
// to sign in once their free allowance for an action runs out.
func GuestMiddleware(config GuestConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action := config.GetAction(r)
			if config.Limiter.ShouldPromptAuthentication(r.Context(), entitlement.GuestAction(action), config.IsAuthenticated(r)) {
				if config.OnPrompt != nil {
					config.OnPrompt(w, r, action)
				} else {
					http.Error(w, "Please sign in to continue", http.StatusUnauthorized)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Common extractors for convenience

// FixedFeature returns a FeatureExtractor that always returns a fixed feature name
func FixedFeature(feature string) FeatureExtractor {
	return func(r *http.Request) string {
		return feature
	}
}

// FixedAction returns an ActionExtractor that always returns a fixed action name
func FixedAction(action string) ActionExtractor {
	return func(r *http.Request) string {
		return action
	}
}

// BearerPresent returns an AuthChecker that treats any Authorization header
// as an authenticated principal
func BearerPresent() AuthChecker {
	return func(r *http.Request) bool {
		return r.Header.Get("Authorization") != ""
	}
}

// ContextKey is a type for context keys
type ContextKey string

const (
	// FeatureKey is the context key for the feature name
	FeatureKey ContextKey = "entitlement:feature"
)

// FromContext returns a FeatureExtractor that gets the feature name from
// the request context
func FromContext(key ContextKey) FeatureExtractor {
	return func(r *http.Request) string {
		if feature, ok := r.Context().Value(key).(string); ok {
			return feature
		}
		return ""
	}
}

// FromHeader returns a FeatureExtractor that gets the feature name from a header
func FromHeader(headerName string) FeatureExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// WithFeature adds a feature name to the request context
func WithFeature(ctx context.Context, feature string) context.Context {
	return context.WithValue(ctx, FeatureKey, feature)
}
