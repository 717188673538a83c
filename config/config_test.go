package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/healthops/secret"
)

const sampleConfig = `
service:
  name: healthops
  version: 1.2.3
server:
  http:
    addr: ":8080"
    base_path: /manage
    show_details: always
    rate_limit:
      rate: 50
      burst: 5
    status_mapping:
      OUT_OF_SERVICE: 200
  grpc:
    addr: ":9090"
  metrics:
    addr: ":9464"
health:
  timeout: 2s
  max_concurrent: 4
  cache_ttl: 5s
  indicators:
    - name: mem
      type: memory
    - name: cache
      type: redis
      addr: localhost:6379
      password: secretref:env:TEST_REDIS_PASSWORD
      breaker: true
auth:
  enabled: true
  jwt:
    issuer: healthops
    key: secretref:env:TEST_JWT_KEY
  roles:
    full: [admin]
    restricted: [viewer]
observability:
  logging:
    enabled: true
    level: info
`

func TestParse_FullDocument(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "redis-pw")
	t.Setenv("TEST_JWT_KEY", "signing-key")

	resolver := secret.NewResolver(true, secret.EnvProvider{})
	cfg, err := Parse(context.Background(), []byte(sampleConfig), resolver)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Service.Name != "healthops" || cfg.Service.Version != "1.2.3" {
		t.Errorf("Service = %+v", cfg.Service)
	}
	if cfg.Server.HTTP.BasePath != "/manage" {
		t.Errorf("BasePath = %q", cfg.Server.HTTP.BasePath)
	}
	if cfg.Server.HTTP.ShowDetails != ShowDetailsAlways {
		t.Errorf("ShowDetails = %q", cfg.Server.HTTP.ShowDetails)
	}
	if cfg.Server.HTTP.StatusMapping["OUT_OF_SERVICE"] != 200 {
		t.Errorf("StatusMapping = %v", cfg.Server.HTTP.StatusMapping)
	}
	if cfg.Health.Timeout.Std() != 2*time.Second {
		t.Errorf("Timeout = %v", cfg.Health.Timeout.Std())
	}
	if cfg.Health.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d", cfg.Health.MaxConcurrent)
	}
	if len(cfg.Health.Indicators) != 2 {
		t.Fatalf("Indicators = %+v", cfg.Health.Indicators)
	}
	if got := cfg.Health.Indicators[1].Password; got != "redis-pw" {
		t.Errorf("redis password = %q, want resolved secret", got)
	}
	if got := cfg.Auth.JWT.Key; got != "signing-key" {
		t.Errorf("jwt key = %q, want resolved secret", got)
	}
	if !cfg.Observability.Logging.Enabled || cfg.Observability.ServiceName != "healthops" {
		t.Errorf("Observability = %+v", cfg.Observability)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte("service:\n  name: healthops\n"), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.BasePath != "/actuator" {
		t.Errorf("BasePath = %q", cfg.Server.HTTP.BasePath)
	}
	if cfg.Server.HTTP.ShowDetails != ShowDetailsWhenAuthorized {
		t.Errorf("ShowDetails = %q", cfg.Server.HTTP.ShowDetails)
	}
	if cfg.Health.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.Health.Timeout.Std())
	}
	if cfg.Health.Parallel == nil || !*cfg.Health.Parallel {
		t.Error("Parallel default is not true")
	}
	if cfg.Management.Domain != "org.healthops" {
		t.Errorf("Domain = %q", cfg.Management.Domain)
	}
}

func TestParse_UnresolvedSecretFails(t *testing.T) {
	doc := "service:\n  name: healthops\nauth:\n  enabled: true\n  jwt:\n    key: ${UNSET_JWT_KEY_VAR}\n"
	if _, err := Parse(context.Background(), []byte(doc), nil); err == nil {
		t.Error("Parse() with missing env var did not error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.Service.Name = "" },
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTP.Addr = "" },
			wantErr: ErrMissingListenAddr,
		},
		{
			name:    "bad show_details",
			mutate:  func(c *Config) { c.Server.HTTP.ShowDetails = "sometimes" },
			wantErr: ErrInvalidShowDetails,
		},
		{
			name: "indicator without name",
			mutate: func(c *Config) {
				c.Health.Indicators = []IndicatorConfig{{Type: "memory"}}
			},
			wantErr: ErrInvalidIndicator,
		},
		{
			name: "duplicate indicator",
			mutate: func(c *Config) {
				c.Health.Indicators = []IndicatorConfig{
					{Name: "a", Type: "memory"},
					{Name: "a", Type: "memory"},
				}
			},
			wantErr: ErrInvalidIndicator,
		},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.Health.Indicators = []IndicatorConfig{{Name: "r", Type: "redis"}}
			},
			wantErr: ErrInvalidIndicator,
		},
		{
			name: "unknown indicator type",
			mutate: func(c *Config) {
				c.Health.Indicators = []IndicatorConfig{{Name: "x", Type: "mongo"}}
			},
			wantErr: ErrInvalidIndicator,
		},
		{
			name:    "auth without key",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: ErrMissingJWTKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.applyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuration_Unmarshal(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte("service:\n  name: s\nhealth:\n  timeout: 750ms\n"), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Health.Timeout.Std() != 750*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Health.Timeout.Std())
	}

	if _, err := Parse(context.Background(), []byte("service:\n  name: s\nhealth:\n  timeout: soon\n"), nil); err == nil {
		t.Error("bad duration did not error")
	}
}
