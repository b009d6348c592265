package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/shared"
)

// Client is the API surface the CLI talks to.
type Client interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, username, password string) (*shared.LoginResponse, error)
	Me(ctx context.Context) (*shared.ProfileResponse, error)
	Ping(ctx context.Context) error
	SetToken(token string)
	Token() string
	Close() error
}

type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration

	mu          sync.RWMutex
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient creates a client for endpoint. No connection is made until
// the first call. Extra dial options are appended after the defaults.
func NewGRPCClient(endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(shared.CodecName)),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.Token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (c *GRPCClient) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *GRPCClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Register creates an account and returns the server's confirmation.
func (c *GRPCClient) Register(ctx context.Context, username, email, password string) (string, error) {
	req := &shared.RegisterRequest{Username: username, Email: email, Password: password}

	var resp shared.MessageResponse
	if err := c.conn.Invoke(ctx, shared.MethodRegister, req, &resp); err != nil {
		return "", mapError(err)
	}
	return resp.Message, nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *GRPCClient) Login(ctx context.Context, username, password string) (*shared.LoginResponse, error) {
	req := &shared.LoginRequest{Username: username, Password: password}

	var resp shared.LoginResponse
	if err := c.conn.Invoke(ctx, shared.MethodLogin, req, &resp); err != nil {
		return nil, mapError(err)
	}

	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *GRPCClient) Me(ctx context.Context) (*shared.ProfileResponse, error) {
	var resp shared.ProfileResponse
	if err := c.conn.Invoke(ctx, shared.MethodMe, &shared.MeRequest{}, &resp); err != nil {
		return nil, mapError(err)
	}
	return &resp, nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	var resp shared.PingResponse
	if err := c.conn.Invoke(ctx, shared.MethodPing, &shared.PingRequest{}, &resp); err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}

	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		sentinel = ErrUnauthorized
	case codes.PermissionDenied:
		sentinel = ErrLocked
	case codes.AlreadyExists:
		sentinel = ErrConflict
	case codes.InvalidArgument:
		sentinel = ErrInvalidInput
	case codes.NotFound:
		sentinel = ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
