// Package accordv1 defines the accord.v1.AccordService gRPC service.
// Messages are google.protobuf.Struct values holding the JSON forms of the
// request and response types below.
package accordv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "accord.v1.AccordService"
	EvaluateMethod  = "/" + ServiceName + "/Evaluate"
	SubmitMethod    = "/" + ServiceName + "/Submit"
	serviceMetadata = "accord/v1/accord.proto"
)

// AccordServiceServer is the server API for AccordService.
type AccordServiceServer interface {
	Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAccordServiceServer registers srv with s.
func RegisterAccordServiceServer(s grpc.ServiceRegistrar, srv AccordServiceServer) {
	s.RegisterService(&AccordService_ServiceDesc, srv)
}

func _AccordService_Evaluate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccordServiceServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccordServiceServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _AccordService_Submit_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccordServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccordServiceServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AccordService_ServiceDesc is the grpc.ServiceDesc for AccordService.
var AccordService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: _AccordService_Evaluate_Handler},
		{MethodName: "Submit", Handler: _AccordService_Submit_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: serviceMetadata,
}

// AccordServiceClient is the client API for AccordService.
type AccordServiceClient interface {
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type accordServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAccordServiceClient wraps a connection.
func NewAccordServiceClient(cc grpc.ClientConnInterface) AccordServiceClient {
	return &accordServiceClient{cc: cc}
}

func (c *accordServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EvaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accordServiceClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SubmitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
