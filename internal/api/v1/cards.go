package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kanloop/kanloop/internal/domain"
	"github.com/kanloop/kanloop/internal/realtime"
)

// CardDelta is the KanbanUpdate payload: one card-level change with enough
// context for clients to patch their local board state.
type CardDelta struct {
	Action string       `json:"action"` // created, updated, moved, deleted
	Card   *domain.Card `json:"card,omitempty"`
	CardID uuid.UUID    `json:"cardId"`
}

type CreateCardInput struct {
	Body struct {
		BoardID     uuid.UUID `json:"boardId" doc:"Board ID"`
		ListID      uuid.UUID `json:"listId" doc:"List ID"`
		Title       string    `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description string    `json:"description,omitempty" doc:"Card description"`
		Position    int       `json:"position,omitempty" doc:"Position within the list (0=append)"`
	}
}

type CreateCardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		Title       string  `json:"title,omitempty" maxLength:"500" doc:"Card title"`
		Description *string `json:"description,omitempty" doc:"Card description"`
	}
}

type UpdateCardOutput struct {
	Body *domain.Card
}

type MoveCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		ListID   uuid.UUID `json:"listId" doc:"Target list ID"`
		Position int       `json:"position" doc:"Position within the target list"`
	}
}

type MoveCardOutput struct {
	Body *domain.Card
}

type DeleteCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

func publishCardDelta(ctx context.Context, pub Publisher, boardID uuid.UUID, delta CardDelta) {
	if err := pub.BroadcastUpdate(ctx, boardID, realtime.UpdateKanban, delta); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Str("action", delta.Action).Msg("broadcast card delta")
	}
}

func RegisterCardRoutes(api huma.API, store DataStore, pub Publisher) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/cards",
		Summary:     "Create a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CreateCardOutput, error) {
		list, err := store.Lists().GetByID(ctx, input.Body.ListID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("list not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate list", err)
		}
		if list.BoardID != input.Body.BoardID {
			return nil, huma.Error400BadRequest("list does not belong to the given board")
		}

		now := time.Now()
		c := &domain.Card{
			ID:          uuid.New(),
			BoardID:     input.Body.BoardID,
			ListID:      input.Body.ListID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Position:    input.Body.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Cards().Create(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to create card", err)
		}

		publishCardDelta(ctx, pub, c.BoardID, CardDelta{Action: "created", Card: c, CardID: c.ID})

		return &CreateCardOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPut,
		Path:        "/cards/{id}",
		Summary:     "Update a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*UpdateCardOutput, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		if input.Body.Title != "" {
			existing.Title = input.Body.Title
		}
		if input.Body.Description != nil {
			existing.Description = *input.Body.Description
		}
		existing.UpdatedAt = time.Now()

		if err := store.Cards().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update card", err)
		}

		publishCardDelta(ctx, pub, existing.BoardID, CardDelta{Action: "updated", Card: existing, CardID: existing.ID})

		return &UpdateCardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPatch,
		Path:        "/cards/{id}/move",
		Summary:     "Move a card to a list position",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*MoveCardOutput, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		target, err := store.Lists().GetByID(ctx, input.Body.ListID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("target list not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate target list", err)
		}
		if target.BoardID != existing.BoardID {
			return nil, huma.Error400BadRequest("cannot move a card across boards")
		}

		if err := store.Cards().Move(ctx, input.ID, input.Body.ListID, input.Body.Position); err != nil {
			return nil, huma.Error500InternalServerError("failed to move card", err)
		}

		existing.ListID = input.Body.ListID
		existing.Position = input.Body.Position
		existing.UpdatedAt = time.Now()

		publishCardDelta(ctx, pub, existing.BoardID, CardDelta{Action: "moved", Card: existing, CardID: existing.ID})

		return &MoveCardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		if err := store.Cards().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete card", err)
		}

		publishCardDelta(ctx, pub, existing.BoardID, CardDelta{Action: "deleted", CardID: existing.ID})

		return nil, nil
	})
}
