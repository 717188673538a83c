package endpoint

import (
	"context"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
)

// Evaluator is the shared invocation core every transport adapter wraps.
// health.Composite satisfies it; CachedEvaluator decorates it.
type Evaluator interface {
	// Health evaluates all indicators and returns the folded result.
	Health(ctx context.Context) health.CompositeHealth

	// CheckOne evaluates a single named indicator.
	CheckOne(ctx context.Context, name string) (health.Health, error)
}

// Operation describes one exposed endpoint operation: transport adapters
// consume this table instead of discovering handlers reflectively.
type Operation struct {
	// ID identifies the operation ("health", "health-component").
	ID string

	// Method is the HTTP verb for HTTP-style transports.
	Method string

	// Path is the route relative to the adapter base path. May contain
	// template variables ("/health/{component}").
	Path string

	// Templated reports whether Path contains template variables.
	Templated bool

	// MinAccess is the lowest access level that may see and invoke the
	// operation.
	MinAccess auth.AccessLevel
}

// DefaultOperations returns the operation table for the health endpoint.
func DefaultOperations() []Operation {
	return []Operation{
		{ID: "health", Method: "GET", Path: "/health", MinAccess: auth.AccessRestricted},
		{ID: "health-component", Method: "GET", Path: "/health/{component}", Templated: true, MinAccess: auth.AccessFull},
	}
}

// Link is one entry of the discovery document.
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

// Links builds the discovery document for the given access level: only
// operations the level permits are listed, and self is always included.
func Links(basePath string, operations []Operation, level auth.AccessLevel) map[string]Link {
	links := map[string]Link{
		"self": {Href: basePath},
	}
	for _, op := range operations {
		if level < op.MinAccess {
			continue
		}
		links[op.ID] = Link{Href: basePath + op.Path, Templated: op.Templated}
	}
	return links
}
