// Package config loads and validates the healthopsd configuration.
//
// Configuration is a YAML file. Values pass through the secret resolver
// before parsing, so any value may use ${ENV_VAR} expansion or
// secretref:<provider>:<ref> references instead of inline credentials.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/secret"
)

// Configuration errors.
var (
	ErrMissingServiceName = errors.New("config: service name is required")
	ErrMissingListenAddr  = errors.New("config: http listen address is required")
	ErrInvalidShowDetails = errors.New("config: invalid show_details policy")
	ErrInvalidIndicator   = errors.New("config: invalid indicator")
	ErrMissingJWTKey      = errors.New("config: auth enabled but jwt key is empty")
)

// Duration wraps time.Duration with YAML parsing of Go duration strings.
type Duration time.Duration

// UnmarshalYAML parses "10s", "500ms" and friends.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ShowDetails policies for the HTTP adapter.
const (
	ShowDetailsNever          = "never"
	ShowDetailsWhenAuthorized = "when-authorized"
	ShowDetailsAlways         = "always"
)

// Config is the root configuration for healthopsd.
type Config struct {
	Service       ServiceConfig  `yaml:"service"`
	Server        ServerConfig   `yaml:"server"`
	Health        HealthConfig   `yaml:"health"`
	Auth          AuthConfig     `yaml:"auth"`
	Observability observe.Config `yaml:"-"`

	// Observe mirrors observe.Config with yaml tags.
	Observe ObserveConfig `yaml:"observability"`

	Management ManagementConfig `yaml:"management"`
}

// ServiceConfig identifies the service.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	HTTP    HTTPServerConfig `yaml:"http"`
	GRPC    GRPCServerConfig `yaml:"grpc"`
	Metrics MetricsServer    `yaml:"metrics"`
}

// HTTPServerConfig configures the HTTP endpoint adapter.
type HTTPServerConfig struct {
	Addr        string          `yaml:"addr"`
	BasePath    string          `yaml:"base_path"`
	ShowDetails string          `yaml:"show_details"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`

	// StatusMapping overrides status to HTTP code translation,
	// e.g. OUT_OF_SERVICE: 200 during planned maintenance.
	StatusMapping map[string]int `yaml:"status_mapping"`
}

// RateLimitConfig bounds unauthenticated endpoint traffic. Zero disables.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// GRPCServerConfig configures the gRPC health listener. Empty Addr disables.
type GRPCServerConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsServer configures the Prometheus scrape listener. Empty Addr
// disables.
type MetricsServer struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// HealthConfig configures the composite evaluation.
type HealthConfig struct {
	Timeout       Duration          `yaml:"timeout"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Parallel      *bool             `yaml:"parallel"`
	CacheTTL      Duration          `yaml:"cache_ttl"`
	Indicators    []IndicatorConfig `yaml:"indicators"`
}

// IndicatorConfig declares one registered indicator.
type IndicatorConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // memory | redis

	// Addr is the target address for network indicators.
	Addr string `yaml:"addr"`

	// Password is the credential for indicators that need one. Use a
	// secretref, not an inline value.
	Password string `yaml:"password"`

	// Critical marks the component as critical for serving traffic.
	Critical bool `yaml:"critical"`

	// Breaker enables the circuit-breaker decorator.
	Breaker bool `yaml:"breaker"`
}

// AuthConfig configures the security interceptor. Disabled means every
// caller gets RESTRICTED access.
type AuthConfig struct {
	Enabled bool       `yaml:"enabled"`
	JWT     JWTConfig  `yaml:"jwt"`
	Roles   RoleConfig `yaml:"roles"`

	// PolicyURL, when set, delegates access decisions to an external
	// permission backend instead of local roles.
	PolicyURL string `yaml:"policy_url"`
}

// JWTConfig configures token validation.
type JWTConfig struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	Key      string `yaml:"key"`
}

// RoleConfig maps roles to access levels.
type RoleConfig struct {
	Full       []string `yaml:"full"`
	Restricted []string `yaml:"restricted"`
}

// ObserveConfig mirrors observe.Config with YAML tags.
type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"sample_pct"`
	} `yaml:"tracing"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`
	Logging struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
}

// ManagementConfig configures the in-process management server.
type ManagementConfig struct {
	Domain string `yaml:"domain"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	parallel := true
	return &Config{
		Service: ServiceConfig{Name: "healthops"},
		Server: ServerConfig{
			HTTP: HTTPServerConfig{
				Addr:        ":8080",
				BasePath:    "/actuator",
				ShowDetails: ShowDetailsWhenAuthorized,
			},
			Metrics: MetricsServer{Path: "/metrics"},
		},
		Health: HealthConfig{
			Timeout:       Duration(10 * time.Second),
			MaxConcurrent: 10,
			Parallel:      &parallel,
		},
		Management: ManagementConfig{Domain: "org.healthops"},
	}
}

// Load reads, resolves and validates the configuration file. The resolver
// expands environment variables and secret references in the raw document
// before parsing; pass nil to only expand the environment.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(ctx, raw, resolver)
}

// Parse resolves and validates a raw configuration document.
func Parse(ctx context.Context, raw []byte, resolver *secret.Resolver) (*Config, error) {
	resolved, err := resolver.ResolveValue(ctx, string(raw))
	if err != nil {
		return nil, fmt.Errorf("config: resolve secrets: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(resolved), cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTP.BasePath == "" {
		c.Server.HTTP.BasePath = "/actuator"
	}
	if c.Server.HTTP.ShowDetails == "" {
		c.Server.HTTP.ShowDetails = ShowDetailsWhenAuthorized
	}
	if c.Server.Metrics.Path == "" {
		c.Server.Metrics.Path = "/metrics"
	}
	if c.Health.Timeout <= 0 {
		c.Health.Timeout = Duration(10 * time.Second)
	}
	if c.Health.MaxConcurrent <= 0 {
		c.Health.MaxConcurrent = 10
	}
	if c.Health.Parallel == nil {
		parallel := true
		c.Health.Parallel = &parallel
	}
	if c.Management.Domain == "" {
		c.Management.Domain = "org.healthops"
	}

	c.Observability = observe.Config{
		ServiceName: c.Service.Name,
		Version:     c.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Server.HTTP.Addr == "" {
		return ErrMissingListenAddr
	}

	switch c.Server.HTTP.ShowDetails {
	case ShowDetailsNever, ShowDetailsWhenAuthorized, ShowDetailsAlways:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidShowDetails, c.Server.HTTP.ShowDetails)
	}

	seen := make(map[string]bool, len(c.Health.Indicators))
	for _, ind := range c.Health.Indicators {
		if ind.Name == "" {
			return fmt.Errorf("%w: missing name", ErrInvalidIndicator)
		}
		if seen[ind.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidIndicator, ind.Name)
		}
		seen[ind.Name] = true
		switch ind.Type {
		case "memory":
		case "redis":
			if ind.Addr == "" {
				return fmt.Errorf("%w: %q: redis indicator needs addr", ErrInvalidIndicator, ind.Name)
			}
		default:
			return fmt.Errorf("%w: %q: unknown type %q", ErrInvalidIndicator, ind.Name, ind.Type)
		}
	}

	if c.Auth.Enabled && c.Auth.JWT.Key == "" {
		return ErrMissingJWTKey
	}

	return c.Observability.Validate()
}
