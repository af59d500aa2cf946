package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/tensor"
	"AlertMate/go-backend/pkg/log"
	pb "AlertMate/go-backend/pkg/pb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	inferTimeout  = 5 * time.Second
	healthTimeout = 2 * time.Second
)

// ErrModelUnavailable marks failures of the landmark model rather than of the
// frame itself.
var ErrModelUnavailable = errors.New("landmark model unavailable")

// LandmarkModel turns one encoded frame into per-landmark heatmaps.
type LandmarkModel interface {
	Infer(ctx context.Context, jpeg []byte) (drowsiness.Heatmaps, error)
}

// LandmarkClient talks to the landmark model service over gRPC.
type LandmarkClient struct {
	conn   *grpc.ClientConn
	client pb.LandmarkModelClient
	health healthpb.HealthClient
	url    string
}

func NewLandmarkClient(url string, maxMsgMB int) (*LandmarkClient, error) {
	log.Info(log.Fields{"url": url}, "connecting to landmark model")

	if maxMsgMB <= 0 {
		maxMsgMB = 50
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsgMB*1024*1024),
			grpc.MaxCallSendMsgSize(maxMsgMB*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	conn, err := grpc.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to landmark model at %s: %w", url, err)
	}

	return newLandmarkClient(conn, url), nil
}

func newLandmarkClient(conn *grpc.ClientConn, url string) *LandmarkClient {
	return &LandmarkClient{
		conn:   conn,
		client: pb.NewLandmarkModelClient(conn),
		health: healthpb.NewHealthClient(conn),
		url:    url,
	}
}

func (lc *LandmarkClient) Infer(ctx context.Context, jpeg []byte) (drowsiness.Heatmaps, error) {
	ctx, cancel := context.WithTimeout(ctx, inferTimeout)
	defer cancel()

	resp, err := lc.client.Infer(ctx, wrapperspb.Bytes(jpeg))
	if err != nil {
		return drowsiness.Heatmaps{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	h, err := tensor.Decode(resp.GetValue())
	if err != nil {
		return drowsiness.Heatmaps{}, fmt.Errorf("decode heatmaps: %w", err)
	}
	return h, nil
}

// HealthCheck reports whether the model service answers SERVING.
func (lc *LandmarkClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	resp, err := lc.health.Check(ctx, &healthpb.HealthCheckRequest{Service: pb.LandmarkModel_ServiceName})
	if err != nil {
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func (lc *LandmarkClient) URL() string { return lc.url }

func (lc *LandmarkClient) Close() error {
	if lc.conn != nil {
		return lc.conn.Close()
	}
	return nil
}
