package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	DrowsinessDetection_ServiceName            = "alertmate.v1.DrowsinessDetection"
	DrowsinessDetection_Monitor_FullMethodName = "/alertmate.v1.DrowsinessDetection/Monitor"
)

type DrowsinessDetectionClient interface {
	Monitor(ctx context.Context, opts ...grpc.CallOption) (DrowsinessDetection_MonitorClient, error)
}

type drowsinessDetectionClient struct {
	cc grpc.ClientConnInterface
}

func NewDrowsinessDetectionClient(cc grpc.ClientConnInterface) DrowsinessDetectionClient {
	return &drowsinessDetectionClient{cc}
}

func (c *drowsinessDetectionClient) Monitor(ctx context.Context, opts ...grpc.CallOption) (DrowsinessDetection_MonitorClient, error) {
	stream, err := c.cc.NewStream(ctx, &DrowsinessDetection_ServiceDesc.Streams[0], DrowsinessDetection_Monitor_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &drowsinessDetectionMonitorClient{stream}, nil
}

type DrowsinessDetection_MonitorClient interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type drowsinessDetectionMonitorClient struct {
	grpc.ClientStream
}

func (x *drowsinessDetectionMonitorClient) Send(m *wrapperspb.BytesValue) error {
	return x.ClientStream.SendMsg(m)
}

func (x *drowsinessDetectionMonitorClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type DrowsinessDetectionServer interface {
	Monitor(DrowsinessDetection_MonitorServer) error
}

type UnimplementedDrowsinessDetectionServer struct{}

func (UnimplementedDrowsinessDetectionServer) Monitor(DrowsinessDetection_MonitorServer) error {
	return status.Error(codes.Unimplemented, "method Monitor not implemented")
}

func RegisterDrowsinessDetectionServer(s grpc.ServiceRegistrar, srv DrowsinessDetectionServer) {
	s.RegisterService(&DrowsinessDetection_ServiceDesc, srv)
}

type DrowsinessDetection_MonitorServer interface {
	Send(*structpb.Struct) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type drowsinessDetectionMonitorServer struct {
	grpc.ServerStream
}

func (x *drowsinessDetectionMonitorServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func (x *drowsinessDetectionMonitorServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _DrowsinessDetection_Monitor_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(DrowsinessDetectionServer).Monitor(&drowsinessDetectionMonitorServer{stream})
}

var DrowsinessDetection_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DrowsinessDetection_ServiceName,
	HandlerType: (*DrowsinessDetectionServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Monitor",
			Handler:       _DrowsinessDetection_Monitor_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "alertmate.proto",
}
