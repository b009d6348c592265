package shared

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// gRPC service and method names of the auth API.
const (
	ServiceName = "peach.auth.AuthService"

	MethodRegister = "/" + ServiceName + "/Register"
	MethodLogin    = "/" + ServiceName + "/Login"
	MethodMe       = "/" + ServiceName + "/Me"
	MethodPing     = "/" + ServiceName + "/Ping"
)

// CodecName is the gRPC content-subtype under which messages travel as JSON.
// Clients select it with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec carries the plain Go message structs over gRPC.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec: marshal %T: %w", v, err)
	}
	return b, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: unmarshal %T: %w", v, err)
	}
	return nil
}

// User-facing messages shared by the HTTP and gRPC boundaries.
const (
	MsgRegistered         = "User registered successfully"
	MsgUsernameTaken      = "Username is already taken"
	MsgEmailInUse         = "Email is already in use"
	MsgInvalidCredentials = "Invalid username or password"
	MsgAccountLocked      = "Account is locked due to too many failed login attempts"
	MsgUserNotFound       = "User not found"
	MsgUnauthorized       = "Full authentication is required to access this resource"
	MsgForbidden          = "Access denied"
	MsgInternal           = "Internal server error"
	MsgValidation         = "Validation failed"
)
