// Package registry tracks live real-time sessions keyed by actor id and
// role. It owns the connection handles; everything else refers to sessions
// by id only.
package registry

import (
	"errors"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
)

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// ErrNoSession is returned when a send targets an actor with no live session.
var ErrNoSession = errors.New("no session for actor")

// Sender is the write half of a connection. *websocket.Conn satisfies it.
type Sender interface {
	WriteJSON(v interface{}) error
	Close() error
}

type sessionKey struct {
	role Role
	id   string
}

// Registry is the authoritative map of connected sessions. Reads dominate
// (every broadcast and notify), so lookups take a read lock only.
type Registry struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*Session
}

func New() *Registry {
	return &Registry{sessions: make(map[sessionKey]*Session)}
}

// Add registers a session, replacing and closing any existing connection for
// the same actor. Drivers start unavailable until they announce otherwise.
func (r *Registry) Add(role Role, id string, conn Sender) *Session {
	s := &Session{role: role, id: id, conn: conn}

	r.mu.Lock()
	k := sessionKey{role: role, id: id}
	old := r.sessions[k]
	r.sessions[k] = s
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	return s
}

// Drop removes the session only if it is still the current one for its
// actor. A stale session (already replaced by a reconnect) is closed but not
// removed, and Drop reports false so disconnect hooks do not fire for it.
func (r *Registry) Drop(s *Session) bool {
	r.mu.Lock()
	k := sessionKey{role: s.role, id: s.id}
	current := r.sessions[k] == s
	if current {
		delete(r.sessions, k)
	}
	r.mu.Unlock()

	s.close()
	return current
}

// Get returns the live session for an actor, if any.
func (r *Registry) Get(role Role, id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionKey{role: role, id: id}]
	return s, ok
}

// Connected reports whether the actor has a live session.
func (r *Registry) Connected(role Role, id string) bool {
	_, ok := r.Get(role, id)
	return ok
}

// EligibleDrivers returns every connected driver currently marked available.
func (r *Registry) EligibleDrivers() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for k, s := range r.sessions {
		if k.role == RoleDriver && s.Available() {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of live sessions for a role.
func (r *Registry) Count(role Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k := range r.sessions {
		if k.role == role {
			n++
		}
	}
	return n
}

// Session is one live connection plus the driver-side dispatch state
// (availability, last-known location). The write mutex serializes concurrent
// WriteJSON calls on the underlying connection.
type Session struct {
	role Role
	id   string

	mu        sync.Mutex
	conn      Sender
	closed    bool
	available bool
	loc       models.Coord
	hasLoc    bool
}

func (s *Session) ID() string { return s.id }

func (s *Session) Role() Role { return s.role }

// Send pushes one JSON message over the connection.
func (s *Session) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	return s.conn.WriteJSON(v)
}

func (s *Session) SetAvailable(v bool) {
	s.mu.Lock()
	s.available = v
	s.mu.Unlock()
}

func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// UpdateLocation records the driver's last-known position.
func (s *Session) UpdateLocation(c models.Coord) {
	s.mu.Lock()
	s.loc = c
	s.hasLoc = true
	s.mu.Unlock()
}

// Location returns the last-known position and whether one was ever seen.
func (s *Session) Location() (models.Coord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc, s.hasLoc
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.Close()
}
