// Package client is the CLI side of the peach gRPC API.
//
// GRPCClient dials the server with the JSON content-subtype, keeps the
// bearer token obtained by Login and attaches it to every call through a
// unary interceptor. gRPC status codes are mapped to the sentinel errors in
// errors.go; the server's message is kept in the error text.
package client
