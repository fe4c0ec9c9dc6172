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

type CreateListInput struct {
	Body struct {
		BoardID  uuid.UUID `json:"boardId" doc:"Board ID"`
		Title    string    `json:"title" minLength:"1" maxLength:"200" doc:"List title"`
		Position int       `json:"position,omitempty" doc:"Position on the board (0=append)"`
	}
}

type CreateListOutput struct {
	Body *domain.List
}

type UpdateListInput struct {
	ID   uuid.UUID `path:"id" doc:"List ID"`
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"200" doc:"List title"`
	}
}

type UpdateListOutput struct {
	Body *domain.List
}

type ReorderListsInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Body    struct {
		Ordered []uuid.UUID `json:"ordered" minItems:"1" doc:"Every list ID of the board in new position order"`
	}
}

type ReorderListsOutput struct {
	Body []*domain.List
}

type DeleteListInput struct {
	ID uuid.UUID `path:"id" doc:"List ID"`
}

// publishListSet broadcasts the board's complete list set. List changes are
// always announced as the full set so clients replace rather than patch.
func publishListSet(ctx context.Context, store DataStore, pub Publisher, boardID uuid.UUID) []*domain.List {
	lists, err := store.Lists().ListByBoard(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("load list set for broadcast")
		return nil
	}
	if err := pub.BroadcastUpdate(ctx, boardID, realtime.UpdateBoardList, lists); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("broadcast list set")
	}
	return lists
}

func RegisterListRoutes(api huma.API, store DataStore, pub Publisher) {
	huma.Register(api, huma.Operation{
		OperationID: "create-list",
		Method:      http.MethodPost,
		Path:        "/lists",
		Summary:     "Create a list on a board",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *CreateListInput) (*CreateListOutput, error) {
		if _, err := store.Boards().GetByID(ctx, input.Body.BoardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate board", err)
		}

		now := time.Now()
		l := &domain.List{
			ID:        uuid.New(),
			BoardID:   input.Body.BoardID,
			Title:     input.Body.Title,
			Position:  input.Body.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Lists().Create(ctx, l); err != nil {
			return nil, huma.Error500InternalServerError("failed to create list", err)
		}

		publishListSet(ctx, store, pub, l.BoardID)

		return &CreateListOutput{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-list",
		Method:      http.MethodPut,
		Path:        "/lists/{id}",
		Summary:     "Rename a list",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *UpdateListInput) (*UpdateListOutput, error) {
		existing, err := store.Lists().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("list not found")
			}
			return nil, huma.Error500InternalServerError("failed to get list", err)
		}

		existing.Title = input.Body.Title
		existing.UpdatedAt = time.Now()

		if err := store.Lists().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update list", err)
		}

		publishListSet(ctx, store, pub, existing.BoardID)

		return &UpdateListOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-lists",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/lists/order",
		Summary:     "Reorder the lists of a board",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *ReorderListsInput) (*ReorderListsOutput, error) {
		if err := store.Lists().Reorder(ctx, input.BoardID, input.Body.Ordered); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board or list not found")
			}
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("ordered set does not match the board's lists")
			}
			return nil, huma.Error500InternalServerError("failed to reorder lists", err)
		}

		lists := publishListSet(ctx, store, pub, input.BoardID)

		return &ReorderListsOutput{Body: lists}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-list",
		Method:      http.MethodDelete,
		Path:        "/lists/{id}",
		Summary:     "Delete a list",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *DeleteListInput) (*struct{}, error) {
		existing, err := store.Lists().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("list not found")
			}
			return nil, huma.Error500InternalServerError("failed to get list", err)
		}

		if err := store.Lists().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("list not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete list", err)
		}

		publishListSet(ctx, store, pub, existing.BoardID)

		return nil, nil
	})
}
