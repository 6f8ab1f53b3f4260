// Package rpc exposes the monitor and classifier as guard.v1.GuardService.
// Payloads are google.protobuf.Struct, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names.
const (
	ServiceName    = "guard.v1.GuardService"
	ObserveMethod  = "/" + ServiceName + "/Observe"
	ClassifyMethod = "/" + ServiceName + "/Classify"
	CloseMethod    = "/" + ServiceName + "/Close"
)

// #region service-desc
// GuardServer is the server side of guard.v1.GuardService.
type GuardServer interface {
	// Observe feeds one reading into a stream's session and returns the decision.
	Observe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Classify evaluates one point-in-time metric set without any session.
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Close drops a stream's session.
	Close(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes guard.v1.GuardService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GuardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Observe", Handler: observeHandler},
		{MethodName: "Classify", Handler: classifyHandler},
		{MethodName: "Close", Handler: closeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "guard/v1/guard.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv GuardServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func observeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GuardServer).Observe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ObserveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GuardServer).Observe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func classifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GuardServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ClassifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GuardServer).Classify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func closeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GuardServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CloseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GuardServer).Close(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
