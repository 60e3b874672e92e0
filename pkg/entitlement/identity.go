package entitlement

import "context"

// TokenSource supplies a short-lived bearer credential for the current
// principal. The credential is resolved immediately before each request and
// never cached by this package. Implementations should return
// ErrNotAuthenticated when only a guest context is available.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticTokenSource returns a TokenSource that always yields token.
// Intended for tests and short-lived tooling, not for production use where
// credentials rotate.
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		if token == "" {
			return "", ErrNotAuthenticated
		}
		return token, nil
	})
}

// guestTokenSource is the default source when none is configured.
type guestTokenSource struct{}

func (guestTokenSource) Token(context.Context) (string, error) {
	return "", ErrNotAuthenticated
}
