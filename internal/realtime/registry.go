package realtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kanloop/kanloop/internal/domain"
)

var (
	// ErrUnknownConnection is returned when an operation references a
	// connection ID that is not currently registered.
	ErrUnknownConnection = errors.New("realtime: unknown connection")
	// ErrUnboundConnection is returned when a room operation is attempted
	// before the connection has been bound to an authenticated user.
	ErrUnboundConnection = errors.New("realtime: connection not authenticated")
)

// Sender delivers encoded frames to one remote connection. Enqueue must not
// block; it reports false when the frame was dropped (slow or vanished peer).
type Sender interface {
	Enqueue(frame []byte) bool
	Close()
}

// ConnectionInfo is a read-only snapshot of one registered connection.
type ConnectionInfo struct {
	ID        uuid.UUID
	User      *domain.Identity // nil until the connection is bound
	CreatedAt time.Time
}

// connection is the registry's internal record. The user pointer is set once
// via BindUser and never re-bound; atomic access lets room and broadcast
// paths read it without taking the registry lock.
type connection struct {
	id        uuid.UUID
	sender    Sender
	user      atomic.Pointer[domain.Identity]
	createdAt time.Time
}

func (c *connection) info() ConnectionInfo {
	return ConnectionInfo{ID: c.id, User: c.user.Load(), CreatedAt: c.createdAt}
}

// Registry tracks every live connection and the identity bound to it.
// It is safe for concurrent use by many connection handlers.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*connection)}
}

// Register stores a new transport and allocates its connection ID.
func (r *Registry) Register(sender Sender) uuid.UUID {
	c := &connection{
		id:        uuid.New(),
		sender:    sender,
		createdAt: time.Now(),
	}

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	return c.id
}

// BindUser associates an authenticated identity with a connection.
// A connection is bound at most once; re-authentication requires a new
// connection.
func (r *Registry) BindUser(id uuid.UUID, user domain.Identity) error {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("realtime.Registry.BindUser: %w", ErrUnknownConnection)
	}

	u := user
	if !c.user.CompareAndSwap(nil, &u) {
		return fmt.Errorf("realtime.Registry.BindUser: %w", ErrConflictingBind)
	}
	return nil
}

// ErrConflictingBind is returned when BindUser is called twice for the same
// connection.
var ErrConflictingBind = errors.New("realtime: connection already bound")

// Unregister removes a connection and closes its sender. Unregistering an
// already-removed ID is a no-op; in-flight broadcasts referencing the
// connection simply drop their frames.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok {
		c.sender.Close()
	}
}

// Lookup returns a snapshot of the connection, if registered.
func (r *Registry) Lookup(id uuid.UUID) (ConnectionInfo, bool) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return ConnectionInfo{}, false
	}
	return c.info(), true
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) get(id uuid.UUID) (*connection, bool) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	return c, ok
}
