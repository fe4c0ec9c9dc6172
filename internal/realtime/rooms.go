package realtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kanloop/kanloop/internal/domain"
)

// member is one connection's seat in a room. The identity is captured at
// join time so leave events can still name the user after the registry
// entry is gone.
type member struct {
	conn *connection
	user domain.Identity
}

// room is the set of live connections viewing one board (or, for project
// rooms, one project's board overview). Fan-out takes only this room's
// lock, so broadcasts to unrelated rooms proceed in parallel.
type room struct {
	id uuid.UUID

	mu      sync.Mutex
	members map[uuid.UUID]*member
}

func newRoom(id uuid.UUID) *room {
	return &room{id: id, members: make(map[uuid.UUID]*member)}
}

func (rm *room) snapshotLocked() []ConnectionInfo {
	out := make([]ConnectionInfo, 0, len(rm.members))
	for id, m := range rm.members {
		u := m.user
		out = append(out, ConnectionInfo{ID: id, User: &u, CreatedAt: m.conn.createdAt})
	}
	return out
}

// broadcast enqueues one frame to every member. Frames to vanished or slow
// connections are dropped per-recipient and never abort the fan-out.
// Returns the number of successful enqueues.
func (rm *room) broadcast(frame []byte) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	n := 0
	for _, m := range rm.members {
		if m.conn.sender.Enqueue(frame) {
			n++
		}
	}
	return n
}

// membership is a connection's current seats: at most one board room and,
// independently, at most one project room.
type membership struct {
	board   *room
	project *room
}

// MembershipChange describes one board-room transition together with the
// member set immediately after the change. Changes for a single room are
// queued in the order they were applied.
type MembershipChange struct {
	BoardID uuid.UUID
	Joined  bool
	User    domain.Identity
	Members []ConnectionInfo // post-change snapshot
}

// Rooms groups connections by the board (and optionally project) they are
// viewing. Membership mutations are serialized through the manager lock;
// the resulting change stream drives the presence tracker.
type Rooms struct {
	registry *Registry

	mu       sync.RWMutex
	boards   map[uuid.UUID]*room
	projects map[uuid.UUID]*room
	byConn   map[uuid.UUID]*membership

	changes *changeQueue
}

func NewRooms(registry *Registry) *Rooms {
	return &Rooms{
		registry: registry,
		boards:   make(map[uuid.UUID]*room),
		projects: make(map[uuid.UUID]*room),
		byConn:   make(map[uuid.UUID]*membership),
		changes:  newChangeQueue(),
	}
}

// JoinBoard adds the connection to the room for boardID, leaving any prior
// board room first. The room is created on first join. Returns the member
// snapshot after the join.
func (r *Rooms) JoinBoard(connID, boardID uuid.UUID) ([]ConnectionInfo, error) {
	c, ok := r.registry.get(connID)
	if !ok {
		return nil, fmt.Errorf("realtime.Rooms.JoinBoard: %w", ErrUnknownConnection)
	}
	user := c.user.Load()
	if user == nil {
		return nil, fmt.Errorf("realtime.Rooms.JoinBoard: %w", ErrUnboundConnection)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byConn[connID]
	if m == nil {
		m = &membership{}
		r.byConn[connID] = m
	}

	if m.board != nil && m.board.id == boardID {
		// Re-joining the current room: no transition, just a fresh snapshot.
		m.board.mu.Lock()
		members := m.board.snapshotLocked()
		m.board.mu.Unlock()
		return members, nil
	}

	if m.board != nil {
		r.leaveBoardLocked(connID, m.board)
		m.board = nil
	}

	rm := r.boards[boardID]
	if rm == nil {
		rm = newRoom(boardID)
		r.boards[boardID] = rm
	}

	rm.mu.Lock()
	rm.members[connID] = &member{conn: c, user: *user}
	members := rm.snapshotLocked()
	rm.mu.Unlock()

	m.board = rm

	r.changes.push(MembershipChange{
		BoardID: boardID,
		Joined:  true,
		User:    *user,
		Members: members,
	})

	return members, nil
}

// JoinProject adds the connection to the project room for projectID, leaving
// any prior project room. Project rooms are a thin notification channel:
// they carry board-overview notices and do not drive presence.
func (r *Rooms) JoinProject(connID, projectID uuid.UUID) error {
	c, ok := r.registry.get(connID)
	if !ok {
		return fmt.Errorf("realtime.Rooms.JoinProject: %w", ErrUnknownConnection)
	}
	user := c.user.Load()
	if user == nil {
		return fmt.Errorf("realtime.Rooms.JoinProject: %w", ErrUnboundConnection)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byConn[connID]
	if m == nil {
		m = &membership{}
		r.byConn[connID] = m
	}

	if m.project != nil && m.project.id == projectID {
		return nil
	}
	if m.project != nil {
		r.leaveProjectLocked(connID, m.project)
		m.project = nil
	}

	rm := r.projects[projectID]
	if rm == nil {
		rm = newRoom(projectID)
		r.projects[projectID] = rm
	}

	rm.mu.Lock()
	rm.members[connID] = &member{conn: c, user: *user}
	rm.mu.Unlock()

	m.project = rm
	return nil
}

// Leave removes the connection from all of its rooms. No-op for connections
// without rooms; safe to call for already-unregistered connections.
func (r *Rooms) Leave(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byConn[connID]
	if m == nil {
		return
	}
	delete(r.byConn, connID)

	if m.board != nil {
		r.leaveBoardLocked(connID, m.board)
	}
	if m.project != nil {
		r.leaveProjectLocked(connID, m.project)
	}
}

// leaveBoardLocked removes connID from rm, deletes the room when it becomes
// empty, and queues the membership change. Caller holds r.mu.
func (r *Rooms) leaveBoardLocked(connID uuid.UUID, rm *room) {
	rm.mu.Lock()
	seat, present := rm.members[connID]
	if !present {
		rm.mu.Unlock()
		return
	}
	delete(rm.members, connID)
	members := rm.snapshotLocked()
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.boards, rm.id)
	}

	r.changes.push(MembershipChange{
		BoardID: rm.id,
		Joined:  false,
		User:    seat.user,
		Members: members,
	})
}

func (r *Rooms) leaveProjectLocked(connID uuid.UUID, rm *room) {
	rm.mu.Lock()
	delete(rm.members, connID)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.projects, rm.id)
	}
}

// BoardOf reports which board room the connection currently occupies.
func (r *Rooms) BoardOf(connID uuid.UUID) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.byConn[connID]
	if m == nil || m.board == nil {
		return uuid.Nil, false
	}
	return m.board.id, true
}

// MembersOf returns a point-in-time snapshot of the board room's members.
// A board nobody is viewing yields an empty snapshot.
func (r *Rooms) MembersOf(boardID uuid.UUID) []ConnectionInfo {
	r.mu.RLock()
	rm := r.boards[boardID]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked()
}

// BroadcastBoard fans one encoded frame out to every member of the board
// room. Broadcasting to a board with no room is a harmless no-op.
func (r *Rooms) BroadcastBoard(boardID uuid.UUID, frame []byte) int {
	r.mu.RLock()
	rm := r.boards[boardID]
	r.mu.RUnlock()
	if rm == nil {
		return 0
	}
	return rm.broadcast(frame)
}

// BroadcastProject fans one encoded frame out to the project room.
func (r *Rooms) BroadcastProject(projectID uuid.UUID, frame []byte) int {
	r.mu.RLock()
	rm := r.projects[projectID]
	r.mu.RUnlock()
	if rm == nil {
		return 0
	}
	return rm.broadcast(frame)
}

// nextChange blocks until a membership change is available. Reports false
// after Close.
func (r *Rooms) nextChange() (MembershipChange, bool) {
	return r.changes.next()
}

// Close stops the change stream. Pending changes are still drained by the
// consumer before it observes the close.
func (r *Rooms) Close() {
	r.changes.close()
}

func (r *Rooms) boardRoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}
