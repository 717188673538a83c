package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// refPattern matches secretref:<provider>:<ref> occurrences inside a
// value. A ref runs to the next whitespace, so references compose with
// surrounding text ("Bearer secretref:env:POLICY_TOKEN") but cannot be
// embedded mid-token; use ${VAR} expansion for that.
var refPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

// Resolver turns configuration values carrying secret references into
// plaintext. Two forms are understood:
//
//	${ENV_VAR}                   strict environment expansion
//	secretref:<provider>:<ref>   lookup through a named Provider
//
// The daemon resolves the whole YAML document before parsing it, so any
// field (indicator passwords, the JWT signing key, policy tokens) can
// carry a reference instead of an inline credential.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver over the given providers. With strict
// set, a reference resolving to the empty string is an error; an empty
// credential is almost always a misconfiguration.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider under its Name. Safe on a nil resolver.
func (r *Resolver) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[p.Name()] = p
}

// ResolveValue expands environment references, then secret references, in
// value. A nil resolver still performs the environment expansion.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}
	return r.expandRefs(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	resolved := make([]string, len(values))
	for i, v := range values {
		out, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		resolved[i] = out
	}
	return resolved, nil
}

// ResolveMap resolves each string value in input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef splits a whole-value reference of the form
// secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(rest, ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// expandRefs replaces every secret reference in value with its plaintext.
func (r *Resolver) expandRefs(ctx context.Context, value string) (string, error) {
	matches := refPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		plaintext, err := r.lookup(ctx, value[m[2]:m[3]], value[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(plaintext)
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String(), nil
}

func (r *Resolver) lookup(ctx context.Context, name, ref string) (string, error) {
	provider, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("secret: provider %q is not configured", name)
	}
	plaintext, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret: resolve %s:%s: %w", name, ref, err)
	}
	if r.strict && plaintext == "" {
		return "", fmt.Errorf("secret: provider %q resolved %q to an empty value", name, ref)
	}
	return plaintext, nil
}
