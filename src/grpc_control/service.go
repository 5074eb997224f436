package grpc_control

import (
	"fmt"
	"net"

	"candle-stream/src/config"
	"candle-stream/src/logger"
	"candle-stream/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// FeedServiceName is the health service that mirrors the upstream feed.
// The empty service name reports the process itself.
const FeedServiceName = "candlestream.Feed"

// ControlService exposes gRPC health and reflection for orchestrators.
type ControlService struct {
	Config *config.Config
	Logger *logger.Logger
	health *health.Server
	server *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *config.Config, log *logger.Logger) *ControlService {
	s := &ControlService{
		Config: cfg,
		Logger: log,
		health: health.NewServer(),
		server: grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(FeedServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// -----------------------------------------------------------------------------

// SetFeedState maps the feed connection state to a health status.
// Only a subscribed feed is SERVING.
func (s *ControlService) SetFeedState(st models.FeedState) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if st == models.FeedSubscribed {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(FeedServiceName, status)
}

// -----------------------------------------------------------------------------

// Serve blocks on lis until Stop.
func (s *ControlService) Serve(lis net.Listener) error {
	s.Logger.Info("Starting gRPC health server on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Start listens on the configured gRPC address and serves.
func (s *ControlService) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// -----------------------------------------------------------------------------

// Stop flips every service to NOT_SERVING and drains in-flight calls.
func (s *ControlService) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
