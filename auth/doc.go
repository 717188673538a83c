// Package auth resolves caller identities and access levels for endpoint
// exposure.
//
// A TokenValidator (JWT-backed by default) establishes the caller's
// Identity from a bearer token. A PermissionSource maps that identity to an
// AccessLevel (NONE, RESTRICTED, FULL) for a requested endpoint, either
// from local role configuration (RolePermissions) or from a remote policy
// backend (HTTPPermissionSource) in Cloud-Foundry-style deployments.
//
// The Interceptor combines the two into a single PreHandle verdict that
// transport adapters consult before evaluating anything:
//
//	interceptor := auth.NewInterceptor(
//	    auth.NewJWTValidator(auth.JWTConfig{Issuer: "https://uaa"}, keys),
//	    auth.RolePermissions{FullRoles: []string{"admin"}},
//	)
//	verdict := interceptor.PreHandle(ctx, token, "health")
//	if !verdict.Granted() {
//	    // respond with verdict.Code
//	}
//
// Failure modes follow the platform gate semantics: invalid or expired
// token is 401, valid token without scope is 403, and an unreachable
// validator or policy backend is 503: the interceptor fails closed and
// never silently grants access.
package auth
