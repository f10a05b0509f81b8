// Package api defines the daemon's gRPC control service. Messages are
// protobuf well-known types; snapshots travel as google.protobuf.Struct.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mutelink.v1.Control"

// Full method names.
const (
	MethodGetState           = "/" + ServiceName + "/GetState"
	MethodToggleMute         = "/" + ServiceName + "/ToggleMute"
	MethodSetInteractionMode = "/" + ServiceName + "/SetInteractionMode"
	MethodSetAutoFocus       = "/" + ServiceName + "/SetAutoFocus"
	MethodFocusActiveTab     = "/" + ServiceName + "/FocusActiveTab"
	MethodSubscribe          = "/" + ServiceName + "/Subscribe"
)

// ControlServer is the server API for the control service.
type ControlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ToggleMute(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetInteractionMode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetAutoFocus(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	FocusActiveTab(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Subscribe(*emptypb.Empty, SubscribeStream) error
}

// SubscribeStream is the server side of Subscribe.
type SubscribeStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type subscribeStream struct {
	grpc.ServerStream
}

func (s *subscribeStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp proto.Message](method string, newReq func() Req, call func(ControlServer, context.Context, Req) (Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Subscribe(in, &subscribeStream{stream})
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newBool() *wrapperspb.BoolValue { return new(wrapperspb.BoolValue) }

// ServiceDesc describes the control service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetState",
			Handler:    unary(MethodGetState, newEmpty, ControlServer.GetState),
		},
		{
			MethodName: "ToggleMute",
			Handler:    unary(MethodToggleMute, newEmpty, ControlServer.ToggleMute),
		},
		{
			MethodName: "SetInteractionMode",
			Handler:    unary(MethodSetInteractionMode, newString, ControlServer.SetInteractionMode),
		},
		{
			MethodName: "SetAutoFocus",
			Handler:    unary(MethodSetAutoFocus, newBool, ControlServer.SetAutoFocus),
		},
		{
			MethodName: "FocusActiveTab",
			Handler:    unary(MethodFocusActiveTab, newEmpty, ControlServer.FocusActiveTab),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "mutelink/v1/control.proto",
}
