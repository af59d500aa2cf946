package handlers

import (
	"errors"
	"io"
	"time"

	"AlertMate/go-backend/internal/config"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/services"
	"AlertMate/go-backend/pkg/log"
	pb "AlertMate/go-backend/pkg/pb"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const clientIDKey = "client-id"

// GRPCHandler serves DrowsinessDetection.Monitor. Every stream is one
// detection session configured from its request metadata.
type GRPCHandler struct {
	pb.UnimplementedDrowsinessDetectionServer
	runner    *services.Runner
	detection drowsiness.Config
}

func NewGRPCHandler(runner *services.Runner, detection drowsiness.Config) *GRPCHandler {
	return &GRPCHandler{runner: runner, detection: detection}
}

// mdGetter reads the first value of a metadata key.
type mdGetter metadata.MD

func (m mdGetter) Get(key string) string {
	if v := metadata.MD(m).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (h *GRPCHandler) Monitor(stream pb.DrowsinessDetection_MonitorServer) error {
	if h.runner == nil || h.runner.Model == nil {
		return status.Error(codes.Unavailable, "landmark model is not configured")
	}

	md, _ := metadata.FromIncomingContext(stream.Context())
	cfg, err := config.ApplyOverrides(h.detection, mdGetter(md))
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	clientID := mdGetter(md).Get(clientIDKey)
	if clientID == "" {
		clientID = "grpc-" + uuid.NewString()
	}
	st := services.NewStream(clientID, cfg)

	metrics := h.runner.Metrics
	metrics.SessionStarted()
	defer metrics.SessionEnded()

	log.Info(log.Fields{"client": clientID}, "monitor stream started")
	defer log.Info(log.Fields{"client": clientID}, "monitor stream completed")

	for {
		in, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		rec, emitted, err := h.runner.ProcessFrame(stream.Context(), st, in.GetValue(), time.Now())
		if err != nil {
			log.Debug(log.Fields{"client": clientID, "error": err.Error()}, "frame failed")
			if err := stream.Send(frameError(err)); err != nil {
				return err
			}
			continue
		}
		if !emitted {
			continue
		}

		out, err := recordStruct(rec)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
}

// frameError reports a failed frame in-band so the stream survives it. The
// code field carries the gRPC code name the failure maps to.
func frameError(err error) *structpb.Struct {
	code := codes.Internal
	switch {
	case services.IsClientError(err):
		code = codes.InvalidArgument
	case errors.Is(err, services.ErrModelUnavailable):
		code = codes.Unavailable
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(err.Error()),
		"code":  structpb.NewStringValue(code.String()),
	}}
}

func recordStruct(rec drowsiness.DecisionRecord) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"alertness":     rec.Alertness,
		"ear":           rec.EAR,
		"mar":           rec.MAR,
		"eyeClosure":    rec.EyeClosure,
		"isDrowsy":      rec.IsDrowsy,
		"reason":        string(rec.Reason),
		"drowsyCounter": rec.DrowsyCounter,
	}
	if rec.Timestamp != 0 {
		fields["timestamp"] = rec.Timestamp
	}
	return structpb.NewStruct(fields)
}
