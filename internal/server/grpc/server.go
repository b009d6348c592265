package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/belikesnab/peach/internal/logging"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/server/models"
	"github.com/belikesnab/peach/internal/server/services"
)

// AuthService is the part of services.AuthService the gRPC API exposes.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.Account, error)
	Authenticate(ctx context.Context, username, password string) (*services.LoginResult, error)
	CurrentUser(ctx context.Context, username string) (*models.Profile, error)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	tokens  TokenVerifier
	logger  logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, svc AuthService, tokens TokenVerifier) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		auth:    svc,
		tokens:  tokens,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&AuthServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
