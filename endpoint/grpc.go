package endpoint

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
)

// GRPCConfig configures the gRPC health adapter.
type GRPCConfig struct {
	// Interceptor gates access. When nil every caller is admitted, which
	// matches the usual deployment of the standard gRPC health protocol
	// behind a private listener.
	Interceptor *auth.Interceptor

	// ServingStatus overrides the status translation table.
	ServingStatus map[health.Status]grpc_health_v1.HealthCheckResponse_ServingStatus

	// WatchInterval is the re-evaluation period for Watch streams.
	// Default: 5 seconds.
	WatchInterval time.Duration
}

// GRPCServer exposes the composite health over the standard gRPC health
// checking protocol (grpc.health.v1). The empty service name reports the
// aggregate; a non-empty name reports the matching registered indicator.
type GRPCServer struct {
	grpc_health_v1.UnimplementedHealthServer

	evaluator Evaluator
	config    GRPCConfig
}

// NewGRPCServer creates the gRPC adapter over the shared evaluator.
func NewGRPCServer(evaluator Evaluator, config ...GRPCConfig) *GRPCServer {
	cfg := GRPCConfig{WatchInterval: 5 * time.Second}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.WatchInterval <= 0 {
			cfg.WatchInterval = 5 * time.Second
		}
	}
	if cfg.ServingStatus == nil {
		cfg.ServingStatus = map[health.Status]grpc_health_v1.HealthCheckResponse_ServingStatus{
			health.StatusUp:           grpc_health_v1.HealthCheckResponse_SERVING,
			health.StatusDown:         grpc_health_v1.HealthCheckResponse_NOT_SERVING,
			health.StatusOutOfService: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
			health.StatusUnknown:      grpc_health_v1.HealthCheckResponse_UNKNOWN,
		}
	}
	return &GRPCServer{evaluator: evaluator, config: cfg}
}

// Check reports the current serving status for the requested service.
func (s *GRPCServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}

	st, err := s.resolve(ctx, req.GetService())
	if err != nil {
		return nil, err
	}
	return &grpc_health_v1.HealthCheckResponse{Status: s.translate(st)}, nil
}

// Watch streams the serving status, emitting on every change and an
// initial message immediately.
func (s *GRPCServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	ctx := stream.Context()
	if err := s.authorize(ctx); err != nil {
		return err
	}

	last, err := s.resolve(ctx, req.GetService())
	if err != nil {
		return err
	}
	if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.translate(last)}); err != nil {
		return err
	}

	ticker := time.NewTicker(s.config.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current, err := s.resolve(ctx, req.GetService())
			if err != nil {
				return err
			}
			if current == last {
				continue
			}
			last = current
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.translate(current)}); err != nil {
				return err
			}
		}
	}
}

func (s *GRPCServer) resolve(ctx context.Context, service string) (health.Status, error) {
	if service == "" {
		return s.evaluator.Health(ctx).Status(), nil
	}
	h, err := s.evaluator.CheckOne(ctx, service)
	if err != nil {
		if errors.Is(err, health.ErrIndicatorNotFound) {
			return "", status.Errorf(codes.NotFound, "unknown service %q", service)
		}
		return "", status.Error(codes.Internal, err.Error())
	}
	return h.Status(), nil
}

func (s *GRPCServer) translate(st health.Status) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if serving, ok := s.config.ServingStatus[st]; ok {
		return serving
	}
	return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
}

func (s *GRPCServer) authorize(ctx context.Context) error {
	if s.config.Interceptor == nil {
		return nil
	}
	verdict := s.config.Interceptor.PreHandle(ctx, tokenFromMetadata(ctx), "health")
	if verdict.Granted() {
		return nil
	}
	switch verdict.Code {
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, verdict.Message)
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, verdict.Message)
	default:
		return status.Error(codes.Unavailable, verdict.Message)
	}
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	if token, found := strings.CutPrefix(values[0], "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}
