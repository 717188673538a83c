package auth

import "time"

// AccessLevel is the caller's permitted visibility tier for endpoint
// responses.
type AccessLevel int

const (
	// AccessNone denies access entirely.
	AccessNone AccessLevel = iota

	// AccessRestricted permits the aggregate status only, with all
	// per-component details suppressed.
	AccessRestricted

	// AccessFull permits the complete response including details.
	AccessFull
)

// String returns the access level name.
func (l AccessLevel) String() string {
	switch l {
	case AccessRestricted:
		return "RESTRICTED"
	case AccessFull:
		return "FULL"
	default:
		return "NONE"
	}
}

// Identity represents an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email).
	Principal string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// Token is the raw credential the identity was derived from, carried
	// so downstream permission backends can forward it.
	Token string

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time

	// IssuedAt is when the credential was issued.
	IssuedAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// Anonymous returns the identity of an unauthenticated caller.
func Anonymous() *Identity {
	return &Identity{}
}
