package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/kanloop/kanloop/internal/domain"
	"github.com/kanloop/kanloop/internal/realtime"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Boards() domain.BoardRepository
	Lists() domain.ListRepository
	Cards() domain.CardRepository
}

// Publisher abstracts realtime fan-out for handler testing. Handlers publish
// only after the backing write has committed; a failed write publishes
// nothing. *realtime.Broadcaster satisfies this interface.
type Publisher interface {
	BroadcastUpdate(ctx context.Context, boardID uuid.UUID, kind realtime.UpdateKind, payload any) error
	NotifyProject(ctx context.Context, projectID uuid.UUID, payload any) error
}
