package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanloop/kanloop/internal/domain"
)

// Bridge relays board-scoped frames across service instances. When a bridge
// is configured every instance, including the origin, delivers frames from
// the shared stream; single-node deployments run without one.
type Bridge interface {
	Publish(ctx context.Context, boardID uuid.UUID, frame []byte) error
}

// Broadcaster fans structural updates and ephemeral messages out to board
// rooms. Callers invoke BroadcastUpdate only after the backing write has
// committed; the broadcast itself is fire-and-forget.
type Broadcaster struct {
	rooms  *Rooms
	bridge Bridge // nil for single-node deployments
	log    zerolog.Logger
}

func NewBroadcaster(rooms *Rooms, bridge Bridge, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		rooms:  rooms,
		bridge: bridge,
		log:    log.With().Str("component", "broadcast").Logger(),
	}
}

// BroadcastUpdate delivers a structural change to every member of the
// board's room, the originating connection included. A board nobody is
// viewing is a harmless no-op.
func (b *Broadcaster) BroadcastUpdate(ctx context.Context, boardID uuid.UUID, kind UpdateKind, payload any) error {
	ev := Event{Name: kind.EventName(), Data: payload}
	frame, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("realtime.Broadcaster.BroadcastUpdate: %w", err)
	}
	b.dispatch(ctx, boardID, frame)
	return nil
}

// RelayMessage delivers an ephemeral chat notice to the board's room.
// Best-effort only: no persistence, no ordering relative to update events.
func (b *Broadcaster) RelayMessage(ctx context.Context, boardID uuid.UUID, from domain.Identity, text string) error {
	ev := Event{Name: EventReceiveMessage, Data: MessagePayload{Text: text, From: from}}
	frame, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("realtime.Broadcaster.RelayMessage: %w", err)
	}
	b.dispatch(ctx, boardID, frame)
	return nil
}

// NotifyProject delivers a board metadata notice to a project room, for
// clients watching the board overview rather than a single board.
func (b *Broadcaster) NotifyProject(ctx context.Context, projectID uuid.UUID, payload any) error {
	ev := Event{Name: EventBoardUpdate, Data: payload}
	frame, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("realtime.Broadcaster.NotifyProject: %w", err)
	}
	b.rooms.BroadcastProject(projectID, frame)
	return nil
}

func (b *Broadcaster) dispatch(ctx context.Context, boardID uuid.UUID, frame []byte) {
	if b.bridge == nil {
		b.rooms.BroadcastBoard(boardID, frame)
		return
	}

	if err := b.bridge.Publish(ctx, boardID, frame); err != nil {
		// Local members still get the frame; remote instances miss this one
		// and their clients recover by re-fetching on the next join.
		b.log.Error().Err(err).Str("board_id", boardID.String()).Msg("bridge publish failed, delivering locally")
		b.rooms.BroadcastBoard(boardID, frame)
	}
}

// Deliver fans a bridge-received frame out to local room members. The bridge
// subscription loop calls this for every frame on the shared stream.
func (b *Broadcaster) Deliver(boardID uuid.UUID, frame []byte) {
	b.rooms.BroadcastBoard(boardID, frame)
}
