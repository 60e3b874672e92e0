package entitlement

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires a signed-in
	// principal and only a guest context is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEnforcementDisabled is returned when quota enforcement is globally off.
	ErrEnforcementDisabled = errors.New("quota enforcement disabled")

	// ErrNoSnapshot is returned when no usage snapshot has been fetched yet.
	ErrNoSnapshot = errors.New("no usage snapshot")

	// ErrStoreUnavailable is returned when the guest store cannot be reached.
	ErrStoreUnavailable = errors.New("guest store unavailable")

	// ErrInvalidConfig is returned by New when required configuration is missing.
	ErrInvalidConfig = errors.New("invalid config")
)
