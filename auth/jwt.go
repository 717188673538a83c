package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a raw bearer token and resolves the caller's
// identity.
type TokenValidator interface {
	// Validate parses and verifies the token. Invalid, malformed or
	// expired tokens return an error from this package's sentinels.
	Validate(ctx context.Context, token string) (*Identity, error)
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTConfig configures the JWT validator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the
	// check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips
	// the check.
	Audience string

	// PrincipalClaim is the claim containing the caller principal.
	// Default: "sub".
	PrincipalClaim string

	// RolesClaim is the claim containing the caller roles, either a list
	// or a space-separated string. Default: "roles".
	RolesClaim string
}

// JWTValidator validates JWT bearer tokens.
type JWTValidator struct {
	config      JWTConfig
	keyProvider KeyProvider
}

// NewJWTValidator creates a JWT validator.
func NewJWTValidator(config JWTConfig, keyProvider KeyProvider) *JWTValidator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	return &JWTValidator{config: config, keyProvider: keyProvider}
}

// Validate parses and verifies the token and maps its claims to an
// Identity.
func (v *JWTValidator) Validate(ctx context.Context, tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingCredentials
	}

	var opts []jwt.ParserOption
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		key, err := v.keyProvider.GetKey(ctx, kid)
		if err != nil {
			return nil, ErrKeyNotFound
		}
		return key, nil
	}, opts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, ErrKeyNotFound):
			return nil, ErrKeyNotFound
		default:
			return nil, ErrInvalidCredentials
		}
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	id := &Identity{
		Claims: map[string]any(claims),
		Token:  tokenString,
	}
	if principal, ok := claims[v.config.PrincipalClaim].(string); ok {
		id.Principal = principal
	}
	id.Roles = extractRoles(claims[v.config.RolesClaim])

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id, nil
}

func extractRoles(claim any) []string {
	switch v := claim.(type) {
	case []any:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	case []string:
		return v
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}
