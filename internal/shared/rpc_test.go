package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	var c JSONCodec

	b, err := c.Marshal(&LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice","password":"pw"}`, string(b))

	var got LoginRequest
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, LoginRequest{Username: "alice", Password: "pw"}, got)

	var empty PingRequest
	require.NoError(t, c.Unmarshal(nil, &empty))

	require.Error(t, c.Unmarshal([]byte("{"), &got))
	_, err = c.Marshal(func() {})
	require.Error(t, err)
}
