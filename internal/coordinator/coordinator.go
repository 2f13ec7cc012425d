// Package coordinator drives the per-connection join, message and leave
// protocol on top of the session registry.
//
// The Coordinator never performs I/O. Every state change produces outbound
// events addressed to an explicit set of connection IDs, computed from the
// registry at the moment of the change, and handed to a Sender.
package coordinator

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-rooms/internal/metrics"
	"github.com/Tyrowin/gochat-rooms/internal/protocol"
	"github.com/Tyrowin/gochat-rooms/internal/registry"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks . Sender

// ErrNotJoined is returned by Message when the connection has no session.
var ErrNotJoined = errors.New("You are not in a room")

// Sender delivers an event to a set of connections. It is called with the
// coordinator lock held, so implementations must not block on slow
// recipients or call back into the Coordinator.
type Sender interface {
	Send(recipients []string, ev protocol.Event)
}

// Coordinator applies inbound chat events to the registry and emits the
// resulting notifications.
type Coordinator struct {
	// mu is held from the registry change through the last Send, so the
	// events of one change never interleave with those of another.
	mu       sync.Mutex
	registry *registry.Registry
	sender   Sender
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithMetrics records join and message outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New returns a Coordinator backed by reg that delivers through sender.
func New(reg *registry.Registry, sender Sender, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: reg,
		sender:   sender,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join adds a session for connID. On success the joiner is welcomed, the
// other members are told about the arrival, and everyone in the room gets a
// fresh snapshot, in that order. On failure nothing is emitted and the
// registry error is returned for the caller to relay.
func (c *Coordinator) Join(connID, username, room string) (registry.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.registry.Add(connID, username, room)
	if err != nil {
		c.metrics.ObserveJoin(err)
		c.log.Debug("join rejected",
			zap.String("conn_id", connID),
			zap.String("username", username),
			zap.String("room", room),
			zap.Error(err))
		return registry.Session{}, err
	}
	c.metrics.ObserveJoin(nil)

	c.sender.Send([]string{connID}, protocol.NewServerMessage(protocol.AdminUser,
		fmt.Sprintf("%s, welcome to the room %s 👋", session.Username, session.Room)))

	members := c.registry.ListByRoom(session.Room)
	if others := lo.Without(connIDs(members), connID); len(others) > 0 {
		c.sender.Send(others, protocol.NewServerMessage(protocol.AdminUser,
			fmt.Sprintf("🟢 %s has joined the room!", session.Username)))
	}
	c.sender.Send(connIDs(members), snapshot(session.Room, members))

	c.log.Info("user joined",
		zap.String("conn_id", connID),
		zap.String("username", session.Username),
		zap.String("room", session.Room),
		zap.Int("members", len(members)))
	return session, nil
}

// Message relays text from connID to its whole room, sender included, then
// refreshes the room snapshot. It returns ErrNotJoined without emitting
// anything when connID has no session.
func (c *Coordinator) Message(connID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.registry.Get(connID)
	if !ok {
		c.log.Debug("message from connection without session", zap.String("conn_id", connID))
		return ErrNotJoined
	}
	c.metrics.ObserveMessage()

	members := c.registry.ListByRoom(session.Room)
	recipients := connIDs(members)
	c.sender.Send(recipients, protocol.NewServerMessage(session.Username, text))
	c.sender.Send(recipients, snapshot(session.Room, members))
	return nil
}

// Leave removes the session of connID and notifies the remaining members.
// Leaving without a session is a no-op reported by ok == false.
func (c *Coordinator) Leave(connID string) (registry.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.registry.Remove(connID)
	if !ok {
		return registry.Session{}, false
	}

	members := c.registry.ListByRoom(session.Room)
	c.log.Info("user left",
		zap.String("conn_id", connID),
		zap.String("username", session.Username),
		zap.String("room", session.Room),
		zap.Int("members", len(members)))
	if len(members) == 0 {
		return session, true
	}

	recipients := connIDs(members)
	c.sender.Send(recipients, protocol.NewServerMessage(protocol.AdminUser,
		fmt.Sprintf("🔴 %s has left the room!", session.Username)))
	c.sender.Send(recipients, snapshot(session.Room, members))
	return session, true
}

// Disconnect is Leave for a connection that went away.
func (c *Coordinator) Disconnect(connID string) {
	c.Leave(connID)
}

func connIDs(sessions []registry.Session) []string {
	return lo.Map(sessions, func(s registry.Session, _ int) string { return s.ConnID })
}

func snapshot(room string, sessions []registry.Session) protocol.Event {
	return protocol.NewRoomData(room, lo.Map(sessions, func(s registry.Session, _ int) protocol.User {
		return protocol.User{Username: s.Username, Room: s.Room}
	}))
}
