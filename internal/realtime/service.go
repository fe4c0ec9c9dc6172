// Package realtime implements the board collaboration core: a connection
// registry, board rooms, presence tracking, and best-effort fan-out of
// structural updates and chat messages.
//
// All state is in-memory and volatile. A restart drops every room and
// presence entry; clients re-join on reconnect.
package realtime

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanloop/kanloop/internal/domain"
)

// Service wires the registry, room manager, presence tracker, and
// broadcaster into one handle. Construct it at startup and inject it;
// every instance is fully isolated, which is what makes the core testable.
type Service struct {
	registry    *Registry
	rooms       *Rooms
	presence    *Tracker
	broadcaster *Broadcaster
	log         zerolog.Logger
}

// NewService builds a running realtime core. bridge may be nil for
// single-node deployments.
func NewService(bridge Bridge, log zerolog.Logger) *Service {
	registry := NewRegistry()
	rooms := NewRooms(registry)

	return &Service{
		registry:    registry,
		rooms:       rooms,
		presence:    NewTracker(rooms, log),
		broadcaster: NewBroadcaster(rooms, bridge, log),
		log:         log,
	}
}

// Connect registers a new transport and returns its connection ID.
// The connection starts unauthenticated.
func (s *Service) Connect(sender Sender) uuid.UUID {
	return s.registry.Register(sender)
}

// Authenticate binds a verified identity to the connection.
func (s *Service) Authenticate(connID uuid.UUID, user domain.Identity) error {
	return s.registry.BindUser(connID, user)
}

// JoinBoard moves the connection into the board's room, leaving any prior
// board room, and returns the post-join member snapshot.
func (s *Service) JoinBoard(connID, boardID uuid.UUID) ([]ConnectionInfo, error) {
	return s.rooms.JoinBoard(connID, boardID)
}

// JoinProject subscribes the connection to project-wide board notices.
func (s *Service) JoinProject(connID, projectID uuid.UUID) error {
	return s.rooms.JoinProject(connID, projectID)
}

// BoardOf reports the board room the connection currently occupies.
func (s *Service) BoardOf(connID uuid.UUID) (uuid.UUID, bool) {
	return s.rooms.BoardOf(connID)
}

// MembersOf returns a snapshot of the board room's member connections.
func (s *Service) MembersOf(boardID uuid.UUID) []ConnectionInfo {
	return s.rooms.MembersOf(boardID)
}

// Lookup returns a snapshot of one registered connection.
func (s *Service) Lookup(connID uuid.UUID) (ConnectionInfo, bool) {
	return s.registry.Lookup(connID)
}

// Disconnect is the single disconnect-cleanup path: it cascades room leave
// (emitting presence events) and then removes the registry entry. Safe to
// call more than once and concurrently with in-flight broadcasts.
func (s *Service) Disconnect(connID uuid.UUID) {
	s.rooms.Leave(connID)
	s.registry.Unregister(connID)
}

// Broadcaster exposes the update/message fan-out for the CRUD layer and
// the websocket handler.
func (s *Service) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Close stops the presence consumer after it drains pending changes.
func (s *Service) Close() {
	s.rooms.Close()
	<-s.presence.Done()
}
