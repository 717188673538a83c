package auth

import "errors"

// Sentinel errors for token validation and access resolution.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")

	// ErrForbidden means the credential is valid but the caller lacks the
	// scope for the requested endpoint.
	ErrForbidden = errors.New("auth: access denied")

	// ErrPolicyUnavailable means the permission backend could not be
	// reached. Callers must fail closed on it.
	ErrPolicyUnavailable = errors.New("auth: permission backend unavailable")
)
