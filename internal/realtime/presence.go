package realtime

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanloop/kanloop/internal/domain"
)

// Tracker consumes the room membership change stream and broadcasts presence
// events. It runs a single consumer goroutine, so changes for any one room
// are delivered to members in the order they were generated.
//
// Presence is volatile: it lives in process memory and is rebuilt from
// client re-joins after a restart.
type Tracker struct {
	rooms *Rooms
	log   zerolog.Logger
	done  chan struct{}
}

// NewTracker starts the presence consumer. Stop it by closing the Rooms
// change stream, then wait on Done.
func NewTracker(rooms *Rooms, log zerolog.Logger) *Tracker {
	t := &Tracker{
		rooms: rooms,
		log:   log.With().Str("component", "presence").Logger(),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

// Done is closed once the consumer goroutine has drained and exited.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

func (t *Tracker) run() {
	defer close(t.done)
	for {
		change, ok := t.rooms.nextChange()
		if !ok {
			return
		}
		t.handle(change)
	}
}

func (t *Tracker) handle(ch MembershipChange) {
	users := distinctUsers(ch.Members)

	// A point notification is emitted only when the user transitioned at
	// the user level. A second tab joining, or one of several tabs leaving,
	// changes connection membership but not presence.
	if transitioned(ch) {
		name := EventUserLeftBoard
		verb := "left"
		if ch.Joined {
			name = EventUserJoinedBoard
			verb = "joined"
		}
		t.send(ch, Event{Name: name, Data: ch.User})
		t.send(ch, Event{
			Name: EventUserInOutMsg,
			Data: fmt.Sprintf("%s %s the board", ch.User.Username, verb),
		})
	}

	// Full snapshot on every membership change. Snapshots are idempotent
	// for receivers: the same set twice is safe.
	t.send(ch, Event{Name: EventUsersInBoard, Data: users})
}

func (t *Tracker) send(ch MembershipChange, ev Event) {
	frame, err := ev.Encode()
	if err != nil {
		t.log.Error().Err(err).Str("event", ev.Name).Msg("encode presence event")
		return
	}
	t.rooms.BroadcastBoard(ch.BoardID, frame)
}

// transitioned reports whether the change altered the deduplicated user set.
func transitioned(ch MembershipChange) bool {
	conns := 0
	for _, m := range ch.Members {
		if m.User != nil && m.User.UserID == ch.User.UserID {
			conns++
		}
	}
	if ch.Joined {
		// First connection of this user in the room.
		return conns == 1
	}
	// Last connection of this user is gone.
	return conns == 0
}

// distinctUsers dedupes a member snapshot by user identity, preserving the
// snapshot's order of first occurrence.
func distinctUsers(members []ConnectionInfo) []domain.Identity {
	seen := make(map[uuid.UUID]struct{}, len(members))
	users := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		if _, dup := seen[m.User.UserID]; dup {
			continue
		}
		seen[m.User.UserID] = struct{}{}
		users = append(users, *m.User)
	}
	return users
}
