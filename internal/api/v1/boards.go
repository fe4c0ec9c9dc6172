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
	"github.com/kanloop/kanloop/internal/server/middleware"
)

type CreateBoardInput struct {
	Body struct {
		ProjectID uuid.UUID `json:"projectId" doc:"Project ID"`
		Title     string    `json:"title" minLength:"1" maxLength:"200" doc:"Board title"`
	}
}

type CreateBoardOutput struct {
	Body *domain.Board
}

type ListBoardsInput struct {
	ProjectID uuid.UUID `query:"project_id" required:"true" doc:"Project ID"`
}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	ID uuid.UUID `path:"id" doc:"Board ID"`
}

// BoardView is a board with its full list and card contents, the payload a
// client loads when opening a board.
type BoardView struct {
	Board *domain.Board  `json:"board"`
	Lists []*domain.List `json:"lists"`
	Cards []*domain.Card `json:"cards"`
}

type GetBoardOutput struct {
	Body *BoardView
}

type UpdateBoardInput struct {
	ID   uuid.UUID `path:"id" doc:"Board ID"`
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"200" doc:"Board title"`
	}
}

type UpdateBoardOutput struct {
	Body *domain.Board
}

type DeleteBoardInput struct {
	ID uuid.UUID `path:"id" doc:"Board ID"`
}

func RegisterBoardRoutes(api huma.API, store DataStore, pub Publisher) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		user, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		now := time.Now()
		b := &domain.Board{
			ID:        uuid.New(),
			ProjectID: input.Body.ProjectID,
			Title:     input.Body.Title,
			CreatedBy: user.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Boards().Create(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		if err := pub.NotifyProject(ctx, b.ProjectID, b); err != nil {
			log.Warn().Err(err).Str("board_id", b.ID.String()).Msg("notify project")
		}

		return &CreateBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards for a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListBoardsInput) (*ListBoardsOutput, error) {
		boards, err := store.Boards().ListByProject(ctx, input.ProjectID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{id}",
		Summary:     "Get a board with its lists and cards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		b, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		lists, err := store.Lists().ListByBoard(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load board lists", err)
		}

		cards, err := store.Cards().ListByBoard(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load board cards", err)
		}

		return &GetBoardOutput{Body: &BoardView{Board: b, Lists: lists, Cards: cards}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPut,
		Path:        "/boards/{id}",
		Summary:     "Rename a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*UpdateBoardOutput, error) {
		existing, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		existing.Title = input.Body.Title
		existing.UpdatedAt = time.Now()

		if err := store.Boards().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		if err := pub.BroadcastUpdate(ctx, existing.ID, realtime.UpdateBoard, existing); err != nil {
			log.Warn().Err(err).Str("board_id", existing.ID.String()).Msg("broadcast board update")
		}
		if err := pub.NotifyProject(ctx, existing.ProjectID, existing); err != nil {
			log.Warn().Err(err).Str("board_id", existing.ID.String()).Msg("notify project")
		}

		return &UpdateBoardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/boards/{id}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*struct{}, error) {
		existing, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		if err := store.Boards().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		if err := pub.NotifyProject(ctx, existing.ProjectID, existing); err != nil {
			log.Warn().Err(err).Str("board_id", existing.ID.String()).Msg("notify project")
		}

		return nil, nil
	})
}
