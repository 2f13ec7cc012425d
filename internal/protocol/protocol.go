// Package protocol defines the JSON envelopes exchanged with chat clients over
// the WebSocket connection.
//
// Every frame carries {"event": ..., "id": ..., "data": ...}. Inbound events are
// join, message and leave; outbound events are serverMessage, roomData and ack.
// Acks echo the id of the request they answer.
package protocol

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

// Inbound event names.
const (
	EventJoin    = "join"
	EventMessage = "message"
	EventLeave   = "leave"
)

// Outbound event names.
const (
	EventServerMessage = "serverMessage"
	EventRoomData      = "roomData"
	EventAck           = "ack"
)

// AdminUser is the author of system narration such as welcomes and departures.
const AdminUser = "admin"

var (
	// ErrUnknownEvent is returned by Decode for event names it does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload is returned by Decode when the data of a known event
	// cannot be parsed or fails validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Envelope is the raw frame shape shared by both directions.
type Envelope struct {
	Event string              `json:"event"`
	ID    uint64              `json:"id,omitempty"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

// Bind decodes the envelope data into v.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(e.Data, v)
}

// JoinRequest is the data of a join event.
type JoinRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Room     string `json:"room" validate:"required,max=64"`
}

// MessageRequest is the data of a message event.
type MessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// Request is a decoded inbound event. Only the field matching Event is set.
type Request struct {
	Event   string
	ID      uint64
	Join    JoinRequest
	Message MessageRequest
}

// DecodeEnvelope parses a single frame without looking at its data.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	return env, nil
}

// Decode parses and validates an inbound frame. When the envelope itself is
// readable the returned Request carries Event and ID even if err is non-nil,
// so the caller can still answer with an ack.
func Decode(raw []byte) (Request, error) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return Request{}, errors.Mark(err, ErrInvalidPayload)
	}

	req := Request{Event: env.Event, ID: env.ID}
	switch env.Event {
	case EventJoin:
		if err := env.Bind(&req.Join); err != nil {
			return req, errors.Mark(errors.Wrap(err, "join"), ErrInvalidPayload)
		}
		req.Join.Username = strings.TrimSpace(req.Join.Username)
		req.Join.Room = strings.TrimSpace(req.Join.Room)
		if err := validate.Struct(req.Join); err != nil {
			return req, errors.Mark(errors.Wrap(err, "join"), ErrInvalidPayload)
		}
	case EventMessage:
		if err := env.Bind(&req.Message); err != nil {
			return req, errors.Mark(errors.Wrap(err, "message"), ErrInvalidPayload)
		}
		if err := validate.Struct(req.Message); err != nil {
			return req, errors.Mark(errors.Wrap(err, "message"), ErrInvalidPayload)
		}
	case EventLeave:
	default:
		return req, errors.Wrapf(ErrUnknownEvent, "%q", env.Event)
	}
	return req, nil
}

// ServerMessage is the data of a serverMessage event.
type ServerMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// User is one entry of a room snapshot.
type User struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomData is the data of a roomData event: the full member list of a room.
type RoomData struct {
	Room  string `json:"room"`
	Users []User `json:"users"`
}

// Ack is the data of an ack answering a failed request.
type Ack struct {
	Error string `json:"error,omitempty"`
}

// Event is an outbound notification before encoding.
type Event struct {
	Name    string
	Payload any
}

// NewServerMessage builds a serverMessage event.
func NewServerMessage(user, message string) Event {
	return Event{Name: EventServerMessage, Payload: ServerMessage{User: user, Message: message}}
}

// NewRoomData builds a roomData event.
func NewRoomData(room string, users []User) Event {
	if users == nil {
		users = []User{}
	}
	return Event{Name: EventRoomData, Payload: RoomData{Room: room, Users: users}}
}

type outbound struct {
	Event string `json:"event"`
	ID    uint64 `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Encode serializes an outbound event.
func Encode(ev Event) ([]byte, error) {
	b, err := json.Marshal(outbound{Event: ev.Name, Data: ev.Payload})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", ev.Name)
	}
	return b, nil
}

// EncodeAck serializes the answer to request id. A nil cause yields an ack
// without data.
func EncodeAck(id uint64, cause error) ([]byte, error) {
	msg := outbound{Event: EventAck, ID: id}
	if cause != nil {
		msg.Data = Ack{Error: cause.Error()}
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "encode ack")
	}
	return b, nil
}
