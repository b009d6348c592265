package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/belikesnab/peach/internal/shared"
)

// AuthServiceServer is the server API of peach.auth.AuthService.
type AuthServiceServer interface {
	Register(context.Context, *shared.RegisterRequest) (*shared.MessageResponse, error)
	Login(context.Context, *shared.LoginRequest) (*shared.LoginResponse, error)
	Me(context.Context, *shared.MeRequest) (*shared.ProfileResponse, error)
	Ping(context.Context, *shared.PingRequest) (*shared.PingResponse, error)
}

// AuthServiceDesc describes peach.auth.AuthService for grpc.Server. Messages
// are the structs from package shared, carried by shared.JSONCodec.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: shared.ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", AuthServiceServer.Register),
		unary("Login", AuthServiceServer.Login),
		unary("Me", AuthServiceServer.Me),
		unary("Ping", AuthServiceServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peach/auth",
}

func unary[Req, Resp any](name string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + shared.ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AuthServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
