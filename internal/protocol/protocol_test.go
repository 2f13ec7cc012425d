package protocol

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Join(t *testing.T) {
	req, err := Decode([]byte(`{"event":"join","id":7,"data":{"username":"  Bob ","room":"Lobby"}}`))

	require.NoError(t, err)
	assert.Equal(t, EventJoin, req.Event)
	assert.Equal(t, uint64(7), req.ID)
	assert.Equal(t, JoinRequest{Username: "Bob", Room: "Lobby"}, req.Join)
}

func TestDecode_JoinValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing data", `{"event":"join","id":1}`},
		{"blank username", `{"event":"join","id":1,"data":{"username":"   ","room":"lobby"}}`},
		{"missing room", `{"event":"join","id":1,"data":{"username":"bob"}}`},
		{"username too long", `{"event":"join","id":1,"data":{"username":"` + strings.Repeat("x", 33) + `","room":"lobby"}}`},
		{"room too long", `{"event":"join","id":1,"data":{"username":"bob","room":"` + strings.Repeat("r", 65) + `"}}`},
		{"wrong type", `{"event":"join","id":1,"data":{"username":3,"room":"lobby"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.raw))

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPayload))
			assert.Equal(t, EventJoin, req.Event)
			assert.Equal(t, uint64(1), req.ID)
		})
	}
}

func TestDecode_Message(t *testing.T) {
	req, err := Decode([]byte(`{"event":"message","id":2,"data":{"text":" hi there "}}`))

	require.NoError(t, err)
	assert.Equal(t, EventMessage, req.Event)
	assert.Equal(t, " hi there ", req.Message.Text)
}

func TestDecode_EmptyMessage(t *testing.T) {
	_, err := Decode([]byte(`{"event":"message","id":2,"data":{"text":""}}`))

	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestDecode_LeaveIgnoresData(t *testing.T) {
	req, err := Decode([]byte(`{"event":"leave"}`))

	require.NoError(t, err)
	assert.Equal(t, EventLeave, req.Event)
}

func TestDecode_UnknownEvent(t *testing.T) {
	req, err := Decode([]byte(`{"event":"whisper","id":3}`))

	assert.True(t, errors.Is(err, ErrUnknownEvent))
	assert.Equal(t, uint64(3), req.ID)
}

func TestDecode_MalformedFrame(t *testing.T) {
	_, err := Decode([]byte(`{"event":`))

	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestEncode_ServerMessage(t *testing.T) {
	b, err := Encode(NewServerMessage(AdminUser, "bob, welcome to the room lobby 👋"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"serverMessage","data":{"user":"admin","message":"bob, welcome to the room lobby 👋"}}`, string(b))
}

func TestEncode_RoomData(t *testing.T) {
	b, err := Encode(NewRoomData("lobby", []User{{Username: "bob", Room: "lobby"}}))

	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"roomData","data":{"room":"lobby","users":[{"username":"bob","room":"lobby"}]}}`, string(b))
}

func TestEncode_EmptyRoomDataKeepsUsersArray(t *testing.T) {
	b, err := Encode(NewRoomData("lobby", nil))

	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"roomData","data":{"room":"lobby","users":[]}}`, string(b))
}

func TestEncodeAck(t *testing.T) {
	ok, err := EncodeAck(4, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ack","id":4}`, string(ok))

	failed, err := EncodeAck(5, errors.New("Username already exists"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ack","id":5,"data":{"error":"Username already exists"}}`, string(failed))
}

func TestEnvelope_BindRoundTrip(t *testing.T) {
	b, err := Encode(NewServerMessage("bob", "hi"))
	require.NoError(t, err)

	env, err := DecodeEnvelope(b)
	require.NoError(t, err)
	var msg ServerMessage
	require.NoError(t, env.Bind(&msg))

	assert.Equal(t, EventServerMessage, env.Event)
	assert.Equal(t, ServerMessage{User: "bob", Message: "hi"}, msg)
}
