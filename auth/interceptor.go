package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// PermissionSource decides the access level an identity gets for a given
// endpoint.
type PermissionSource interface {
	// AccessLevelFor resolves the caller's access level. Returning an
	// error (rather than AccessNone) signals that the decision could not
	// be made; callers must fail closed.
	AccessLevelFor(ctx context.Context, id *Identity, endpointID string) (AccessLevel, error)
}

// SecurityResponse is the verdict of the interceptor for one request.
type SecurityResponse struct {
	// Code is the HTTP-equivalent status of the verdict: 200 when access
	// is granted, 401/403 when denied, 503 when the decision could not be
	// made.
	Code int

	// Message describes the verdict for denied requests.
	Message string

	// AccessLevel is the granted visibility tier. AccessNone unless Code
	// is 200.
	AccessLevel AccessLevel

	// Identity is the resolved caller identity when validation succeeded.
	Identity *Identity
}

// Granted reports whether the request may proceed.
func (r SecurityResponse) Granted() bool {
	return r.Code == http.StatusOK && r.AccessLevel != AccessNone
}

// Interceptor gates endpoint access the way a Cloud-Foundry-style platform
// does: a token validator establishes the caller identity and a permission
// source maps it to an access level for the requested endpoint.
//
// The interceptor fails closed: when either collaborator cannot decide
// (backend unreachable, unexpected error), the verdict is 503 / AccessNone,
// never a silent grant.
type Interceptor struct {
	validator   TokenValidator
	permissions PermissionSource
}

// NewInterceptor creates an interceptor from a validator and a permission
// source.
func NewInterceptor(validator TokenValidator, permissions PermissionSource) *Interceptor {
	return &Interceptor{validator: validator, permissions: permissions}
}

// PreHandle resolves the caller's access level for the given endpoint.
// token is the raw bearer token (empty when the caller sent none);
// endpointID identifies the requested endpoint ("" for the discovery root).
func (i *Interceptor) PreHandle(ctx context.Context, token, endpointID string) SecurityResponse {
	if token == "" {
		return SecurityResponse{
			Code:    http.StatusUnauthorized,
			Message: ErrMissingCredentials.Error(),
		}
	}

	id, err := i.validator.Validate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired),
			errors.Is(err, ErrTokenMalformed),
			errors.Is(err, ErrInvalidCredentials),
			errors.Is(err, ErrMissingCredentials):
			return SecurityResponse{
				Code:    http.StatusUnauthorized,
				Message: err.Error(),
			}
		default:
			// Key lookup or validator infrastructure failure: fail closed.
			return SecurityResponse{
				Code:    http.StatusServiceUnavailable,
				Message: err.Error(),
			}
		}
	}

	level, err := i.permissions.AccessLevelFor(ctx, id, endpointID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return SecurityResponse{
				Code:     http.StatusForbidden,
				Message:  err.Error(),
				Identity: id,
			}
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return SecurityResponse{
				Code:    http.StatusUnauthorized,
				Message: err.Error(),
			}
		}
		return SecurityResponse{
			Code:     http.StatusServiceUnavailable,
			Message:  ErrPolicyUnavailable.Error(),
			Identity: id,
		}
	}
	if level == AccessNone {
		return SecurityResponse{
			Code:     http.StatusForbidden,
			Message:  ErrForbidden.Error(),
			Identity: id,
		}
	}

	return SecurityResponse{
		Code:        http.StatusOK,
		AccessLevel: level,
		Identity:    id,
	}
}

// RolePermissions is a local, role-based permission source.
type RolePermissions struct {
	// FullRoles grant AccessFull.
	FullRoles []string

	// RestrictedRoles grant AccessRestricted.
	RestrictedRoles []string

	// Default is the level for identities matching no configured role.
	// Zero value is AccessNone.
	Default AccessLevel
}

// AccessLevelFor maps the identity's roles to an access level. Full beats
// restricted when both match.
func (p RolePermissions) AccessLevelFor(_ context.Context, id *Identity, _ string) (AccessLevel, error) {
	if id != nil {
		for _, role := range p.FullRoles {
			if id.HasRole(role) {
				return AccessFull, nil
			}
		}
		for _, role := range p.RestrictedRoles {
			if id.HasRole(role) {
				return AccessRestricted, nil
			}
		}
	}
	return p.Default, nil
}

// HTTPPermissionSource asks a remote policy backend for the caller's
// permissions, forwarding the caller's own token. This mirrors the Cloud
// Foundry pattern where the platform's API decides whether the caller may
// read sensitive data.
type HTTPPermissionSource struct {
	// URL is the permissions endpoint.
	URL string

	// Client is the HTTP client; http.DefaultClient when nil.
	Client *http.Client
}

type permissionsPayload struct {
	ReadSensitiveData bool `json:"read_sensitive_data"`
	Read              bool `json:"read"`
}

// AccessLevelFor queries the backend. Backend errors and unexpected
// statuses map to ErrPolicyUnavailable so the interceptor fails closed.
func (s *HTTPPermissionSource) AccessLevelFor(ctx context.Context, id *Identity, endpointID string) (AccessLevel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return AccessNone, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	if id != nil && id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+id.Token)
	}
	if endpointID != "" {
		q := req.URL.Query()
		q.Set("endpoint", endpointID)
		req.URL.RawQuery = q.Encode()
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return AccessNone, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return AccessNone, ErrInvalidCredentials
	case http.StatusForbidden:
		return AccessNone, ErrForbidden
	default:
		return AccessNone, fmt.Errorf("%w: backend returned %d", ErrPolicyUnavailable, resp.StatusCode)
	}

	var payload permissionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return AccessNone, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	if payload.ReadSensitiveData {
		return AccessFull, nil
	}
	if payload.Read {
		return AccessRestricted, nil
	}
	return AccessNone, ErrForbidden
}
