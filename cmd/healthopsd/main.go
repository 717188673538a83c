// Command healthopsd serves aggregated health over HTTP, gRPC and an
// in-process management surface, driven by a YAML configuration file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/endpoint"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
	"github.com/jonwraymond/healthops/secret"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "healthopsd",
		Short:         "Health aggregation daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var (
		configPath    string
		secretSources []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := secret.DefaultRegistry.Providers(secretSources...)
			if err != nil {
				return err
			}
			defer func() {
				for _, p := range providers {
					_ = p.Close()
				}
			}()

			cfg, err := config.Load(cmd.Context(), configPath, secret.NewResolver(true, providers...))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "healthops.yaml", "path to the configuration file")
	cmd.Flags().StringSliceVar(&secretSources, "secret-provider", []string{"env"},
		"secret providers available to config references")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer, err := observe.NewObserver(ctx, cfg.Observability)
	if err != nil {
		return err
	}
	logger := observer.Logger()

	middleware, err := observe.MiddlewareFromObserver(observer)
	if err != nil {
		return err
	}

	registry := health.NewRegistry()
	closers, err := registerIndicators(registry, cfg, middleware)
	if err != nil {
		return err
	}
	defer func() {
		for _, close := range closers {
			_ = close()
		}
	}()

	// Per-check telemetry comes from the WrapIndicator decoration applied
	// at registration; only the aggregate hook is wired here.
	composite := health.NewComposite(registry, health.NewStatusAggregator(), health.CompositeConfig{
		Timeout:       cfg.Health.Timeout.Std(),
		MaxConcurrent: cfg.Health.MaxConcurrent,
		Parallel:      *cfg.Health.Parallel,
		OnAggregate:   middleware.AggregateListener(),
	})

	var evaluator endpoint.Evaluator = composite
	if ttl := cfg.Health.CacheTTL.Std(); ttl > 0 {
		cached := endpoint.NewCachedEvaluator(composite, endpoint.CachedConfig{TTL: ttl})
		cached.Start(ctx)
		defer cached.Stop()
		evaluator = cached
	}

	interceptor := buildInterceptor(cfg)

	httpServer := buildHTTPServer(cfg, evaluator, interceptor)
	grpcServer, grpcListener, err := buildGRPCServer(cfg, evaluator, interceptor)
	if err != nil {
		return err
	}
	metricsServer := buildMetricsServer(cfg)

	management := endpoint.NewManagementServer()
	bean := endpoint.NewHealthBean(
		endpoint.NewObjectName(cfg.Management.Domain, "health"), evaluator)
	if err := management.Register(bean); err != nil {
		return err
	}

	errCh := make(chan error, 3)

	go func() {
		logger.Info(ctx, "http listener starting",
			observe.Field{Key: "addr", Value: cfg.Server.HTTP.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			logger.Info(ctx, "grpc listener starting",
				observe.Field{Key: "addr", Value: cfg.Server.GRPC.Addr})
			if err := grpcServer.Serve(grpcListener); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	if metricsServer != nil {
		go func() {
			logger.Info(ctx, "metrics listener starting",
				observe.Field{Key: "addr", Value: cfg.Server.Metrics.Addr})
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if shutdownErr := observer.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// registerIndicators builds and registers the configured indicators,
// wrapped with telemetry and, when requested, a circuit breaker. Returns
// closers for indicators that hold connections.
func registerIndicators(registry *health.Registry, cfg *config.Config, mw *observe.Middleware) ([]func() error, error) {
	var closers []func() error

	for _, ind := range cfg.Health.Indicators {
		var indicator health.Indicator

		switch ind.Type {
		case "memory":
			indicator = health.NewMemoryIndicator()

		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:     ind.Addr,
				Password: ind.Password,
			})
			closers = append(closers, client.Close)
			indicator = health.NewRedisIndicator(client, ind.Addr)

		default:
			return closers, fmt.Errorf("unknown indicator type %q", ind.Type)
		}

		if ind.Breaker {
			indicator = health.NewCircuitIndicator(indicator, resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
				ResetTimeout: cfg.Health.Timeout.Std(),
			}))
		}

		indicator = mw.WrapIndicator(observe.CheckMeta{
			Name:     ind.Name,
			Critical: ind.Critical,
		}, indicator)

		if err := registry.Register(ind.Name, indicator); err != nil {
			return closers, err
		}
	}

	return closers, nil
}

func buildInterceptor(cfg *config.Config) *auth.Interceptor {
	if !cfg.Auth.Enabled {
		return nil
	}

	validator := auth.NewJWTValidator(auth.JWTConfig{
		Issuer:   cfg.Auth.JWT.Issuer,
		Audience: cfg.Auth.JWT.Audience,
	}, auth.NewStaticKeyProvider([]byte(cfg.Auth.JWT.Key)))

	var permissions auth.PermissionSource
	if cfg.Auth.PolicyURL != "" {
		permissions = &auth.HTTPPermissionSource{URL: cfg.Auth.PolicyURL}
	} else {
		permissions = auth.RolePermissions{
			FullRoles:       cfg.Auth.Roles.Full,
			RestrictedRoles: cfg.Auth.Roles.Restricted,
		}
	}

	return auth.NewInterceptor(validator, permissions)
}

func buildHTTPServer(cfg *config.Config, evaluator endpoint.Evaluator, interceptor *auth.Interceptor) *http.Server {
	httpCfg := endpoint.HTTPConfig{
		BasePath:    cfg.Server.HTTP.BasePath,
		Interceptor: interceptor,
		ShowDetails: detailsPolicy(cfg.Server.HTTP.ShowDetails),
	}

	if len(cfg.Server.HTTP.StatusMapping) > 0 {
		overrides := make(map[health.Status]int, len(cfg.Server.HTTP.StatusMapping))
		for status, code := range cfg.Server.HTTP.StatusMapping {
			overrides[health.Status(status)] = code
		}
		httpCfg.Codes = endpoint.NewStatusCodeMapper(overrides)
	}

	if cfg.Server.HTTP.RateLimit.Rate > 0 {
		httpCfg.Limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.Server.HTTP.RateLimit.Rate,
			Burst: cfg.Server.HTTP.RateLimit.Burst,
		})
	}

	return &http.Server{
		Addr:              cfg.Server.HTTP.Addr,
		Handler:           endpoint.NewHTTPHandler(evaluator, httpCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func buildGRPCServer(cfg *config.Config, evaluator endpoint.Evaluator, interceptor *auth.Interceptor) (*grpc.Server, net.Listener, error) {
	if cfg.Server.GRPC.Addr == "" {
		return nil, nil, nil
	}

	listener, err := net.Listen("tcp", cfg.Server.GRPC.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("grpc listen: %w", err)
	}

	server := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(server, endpoint.NewGRPCServer(evaluator, endpoint.GRPCConfig{
		Interceptor: interceptor,
	}))
	return server, listener, nil
}

func buildMetricsServer(cfg *config.Config) *http.Server {
	if cfg.Server.Metrics.Addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:              cfg.Server.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func detailsPolicy(s string) endpoint.DetailsPolicy {
	switch s {
	case config.ShowDetailsNever:
		return endpoint.DetailsNever
	case config.ShowDetailsAlways:
		return endpoint.DetailsAlways
	default:
		return endpoint.DetailsWhenAuthorized
	}
}
