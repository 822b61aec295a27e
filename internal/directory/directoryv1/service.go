// Package directoryv1 is the gRPC surface of the session directory. Messages
// are google.protobuf.Struct documents; codec.go defines their fields.
package directoryv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "multiplay.directory.v1.Directory"

// Method names.
const (
	MethodCreateSession  = "CreateSession"
	MethodFindSessions   = "FindSessions"
	MethodJoinSession    = "JoinSession"
	MethodLeaveSession   = "LeaveSession"
	MethodDestroySession = "DestroySession"
)

// DirectoryServer is the server API for the Directory service.
type DirectoryServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DestroySession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(DirectoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DirectoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DirectoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the Directory service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateSession, Handler: unaryHandler(MethodCreateSession, DirectoryServer.CreateSession)},
		{MethodName: MethodFindSessions, Handler: unaryHandler(MethodFindSessions, DirectoryServer.FindSessions)},
		{MethodName: MethodJoinSession, Handler: unaryHandler(MethodJoinSession, DirectoryServer.JoinSession)},
		{MethodName: MethodLeaveSession, Handler: unaryHandler(MethodLeaveSession, DirectoryServer.LeaveSession)},
		{MethodName: MethodDestroySession, Handler: unaryHandler(MethodDestroySession, DirectoryServer.DestroySession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "multiplay/directory/v1/directory.proto",
}

// RegisterDirectoryServer registers srv on s.
func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}
