// Package registry tracks which connection belongs to which user and room.
//
// The Registry is the single source of truth for presence: rooms are not
// stored anywhere, they are derived on demand by filtering active sessions.
package registry

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

var (
	// ErrDuplicateName is returned by Add when the normalized username is
	// already taken in the normalized room. The text is shown to clients as is.
	ErrDuplicateName = errors.New("Username already exists")

	// ErrAlreadyJoined is returned by Add when the connection already holds a session.
	ErrAlreadyJoined = errors.New("Connection has already joined a room")
)

// Session is the live association between one connection, one normalized
// username, and one normalized room.
type Session struct {
	ConnID   string `json:"-"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Registry is the in-memory collection of active sessions. It is safe for
// concurrent use; mutations are serialized behind a write lock so that the
// scan-then-insert in Add cannot race with another join to the same room.
type Registry struct {
	mu       sync.RWMutex
	sessions []Session
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Normalize trims surrounding whitespace and lower-cases a username or room.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Add normalizes username and room and stores a new session for connID.
// It fails without mutating anything when the pair is already taken or when
// connID already has a session.
func (r *Registry) Add(connID, username, room string) (Session, error) {
	username = Normalize(username)
	room = Normalize(room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if lo.ContainsBy(r.sessions, func(s Session) bool { return s.ConnID == connID }) {
		return Session{}, ErrAlreadyJoined
	}
	if lo.ContainsBy(r.sessions, func(s Session) bool { return s.Room == room && s.Username == username }) {
		return Session{}, ErrDuplicateName
	}

	session := Session{ConnID: connID, Username: username, Room: room}
	r.sessions = append(r.sessions, session)
	return session, nil
}

// Remove deletes the session owned by connID and returns it. Removing an
// unknown connection is a no-op reported by ok == false.
func (r *Registry) Remove(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(r.sessions, func(s Session) bool { return s.ConnID == connID })
	if !ok {
		return Session{}, false
	}

	session := r.sessions[idx]
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	return session, true
}

// Get returns the session owned by connID, if any.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Find(r.sessions, func(s Session) bool { return s.ConnID == connID })
}

// ListByRoom returns the sessions in room in insertion order. The room is
// normalized before matching and the returned slice is owned by the caller.
func (r *Registry) ListByRoom(room string) []Session {
	room = Normalize(room)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Filter(r.sessions, func(s Session, _ int) bool { return s.Room == room })
}

// Exists reports whether username is taken in room, both normalized.
func (r *Registry) Exists(room, username string) bool {
	room = Normalize(room)
	username = Normalize(username)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.ContainsBy(r.sessions, func(s Session) bool { return s.Room == room && s.Username == username })
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Rooms returns the number of distinct rooms with at least one session.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(lo.UniqBy(r.sessions, func(s Session) string { return s.Room }))
}
