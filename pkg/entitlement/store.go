package entitlement

import "context"

// Persisted key layout for the guest key space. Counter values are decimal
// integer strings.
const (
	// GuestSessionKey holds the locally generated guest session identifier.
	// The identifier is created and owned outside this package.
	GuestSessionKey = "guestSessionId"

	guestActionKeyPrefix = "guestAction:"
)

// GuestStore is a durable, process-external key space for guest session
// state. Implementations live under store/. Writes are last-write-wins;
// cross-process atomicity is not required because the server re-enforces
// real limits.
type GuestStore interface {
	// Get retrieves the value for key. The boolean reports whether the key
	// was present; absence is not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// GuestActionKey returns the persisted key for a guest action counter.
func GuestActionKey(action GuestAction) string {
	return guestActionKeyPrefix + string(action)
}
