package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/shared"
)

type ctxKey string

const (
	UsernameKey ctxKey = "username"
	RolesKey    ctxKey = "roles"
)

var protectedMethods = map[string]struct{}{
	shared.MethodMe: {},
}

// UsernameFromContext returns the subject put in ctx by the access token
// interceptor.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(UsernameKey).(string)
	return u, ok && u != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}

	token, ok := auth.ParseBearer(header)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, UsernameKey, claims.Subject)
	ctx = context.WithValue(ctx, RolesKey, claims.Roles)
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
