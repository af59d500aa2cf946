package services

import (
	"context"
	"net"
	"testing"

	"AlertMate/go-backend/internal/drowsiness/drowsinesstest"
	"AlertMate/go-backend/internal/tensor"
	pb "AlertMate/go-backend/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type modelServer struct {
	pb.UnimplementedLandmarkModelServer
	reply []byte
	err   error
	got   []byte
}

func (m *modelServer) Infer(_ context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	m.got = in.GetValue()
	if m.err != nil {
		return nil, m.err
	}
	return wrapperspb.Bytes(m.reply), nil
}

func startModel(t *testing.T, srv *modelServer, serving healthpb.HealthCheckResponse_ServingStatus) *LandmarkClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	pb.RegisterLandmarkModelServer(s, srv)
	hs := health.NewServer()
	hs.SetServingStatus(pb.LandmarkModel_ServiceName, serving)
	healthpb.RegisterHealthServer(s, hs)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	lc := newLandmarkClient(conn, "bufnet")
	t.Cleanup(func() { lc.Close() })
	return lc
}

func TestLandmarkClient_Infer(t *testing.T) {
	want := drowsinesstest.Open()
	srv := &modelServer{reply: tensor.Encode(want)}
	lc := startModel(t, srv, healthpb.HealthCheckResponse_SERVING)

	frame := []byte{0xff, 0xd8, 0xff, 0xd9}
	got, err := lc.Infer(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, frame, srv.got)
	assert.Equal(t, want.Channels, got.Channels)
	assert.Equal(t, want.Data, got.Data)
}

func TestLandmarkClient_InferError(t *testing.T) {
	srv := &modelServer{err: status.Error(codes.Internal, "boom")}
	lc := startModel(t, srv, healthpb.HealthCheckResponse_SERVING)

	_, err := lc.Infer(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLandmarkClient_TruncatedTensor(t *testing.T) {
	srv := &modelServer{reply: []byte{0, 0, 0, 68}}
	lc := startModel(t, srv, healthpb.HealthCheckResponse_SERVING)

	_, err := lc.Infer(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, tensor.ErrTruncated)
}

func TestLandmarkClient_HealthCheck(t *testing.T) {
	up := startModel(t, &modelServer{}, healthpb.HealthCheckResponse_SERVING)
	assert.True(t, up.HealthCheck(context.Background()))

	down := startModel(t, &modelServer{}, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.False(t, down.HealthCheck(context.Background()))
}
