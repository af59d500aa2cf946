package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	LandmarkModel_ServiceName          = "alertmate.v1.LandmarkModel"
	LandmarkModel_Infer_FullMethodName = "/alertmate.v1.LandmarkModel/Infer"
)

type LandmarkModelClient interface {
	Infer(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type landmarkModelClient struct {
	cc grpc.ClientConnInterface
}

func NewLandmarkModelClient(cc grpc.ClientConnInterface) LandmarkModelClient {
	return &landmarkModelClient{cc}
}

func (c *landmarkModelClient) Infer(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, LandmarkModel_Infer_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LandmarkModelServer is implemented by model services; this repository only
// implements it in tests and local fakes.
type LandmarkModelServer interface {
	Infer(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

type UnimplementedLandmarkModelServer struct{}

func (UnimplementedLandmarkModelServer) Infer(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Infer not implemented")
}

func RegisterLandmarkModelServer(s grpc.ServiceRegistrar, srv LandmarkModelServer) {
	s.RegisterService(&LandmarkModel_ServiceDesc, srv)
}

func _LandmarkModel_Infer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LandmarkModelServer).Infer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: LandmarkModel_Infer_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LandmarkModelServer).Infer(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var LandmarkModel_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LandmarkModel_ServiceName,
	HandlerType: (*LandmarkModelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Infer",
			Handler:    _LandmarkModel_Infer_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alertmate.proto",
}
