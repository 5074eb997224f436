package grpc_control

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"candle-stream/src/config"
	"candle-stream/src/logger"
	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startTestService(t *testing.T) (*ControlService, healthpb.HealthClient) {
	t.Helper()
	svc := NewControlService(config.Default(), logger.NewLoggerWithWriter(io.Discard, "ERROR", "test"))

	lis := bufconn.Listen(1 << 20)
	go svc.Serve(lis)
	t.Cleanup(svc.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return svc, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsFeedState(t *testing.T) {
	svc, client := startTestService(t)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, FeedServiceName))

	svc.SetFeedState(models.FeedSubscribed)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, FeedServiceName))

	svc.SetFeedState(models.FeedAuthPending)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, FeedServiceName))
}
