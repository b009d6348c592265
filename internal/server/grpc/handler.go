package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/shared"
)

func (s *GRPCServer) Register(ctx context.Context, req *shared.RegisterRequest) (*shared.MessageResponse, error) {
	if err := shared.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if _, err := s.auth.Register(ctx, req.Username, req.Email, req.Password); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &shared.MessageResponse{Message: shared.MsgRegistered}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *shared.LoginRequest) (*shared.LoginResponse, error) {
	if err := shared.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &shared.LoginResponse{
		Token:    res.Token,
		Type:     res.TokenType,
		ID:       res.Account.ID,
		Username: res.Account.Username,
		Email:    res.Account.Email,
		Roles:    res.Account.Roles.Slice(),
	}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *shared.MeRequest) (*shared.ProfileResponse, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, shared.MsgUnauthorized)
	}

	profile, err := s.auth.CurrentUser(ctx, username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return profile, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *shared.PingRequest) (*shared.PingResponse, error) {
	return &shared.PingResponse{Status: "OK"}, nil
}

// toStatus maps service errors to gRPC status codes. Unknown errors are
// logged and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, shared.MsgInvalidCredentials)
	case errors.Is(err, common.ErrAccountLocked):
		return status.Error(codes.PermissionDenied, shared.MsgAccountLocked)
	case errors.Is(err, common.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, shared.MsgUsernameTaken)
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, shared.MsgEmailInUse)
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, shared.MsgUserNotFound)
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, shared.MsgInternal)
	}
}
