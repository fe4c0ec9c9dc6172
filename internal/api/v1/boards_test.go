package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/kanloop/kanloop/internal/api/v1"
	"github.com/kanloop/kanloop/internal/domain"
)

func TestCreateBoard(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	user := domain.Identity{UserID: uuid.New(), Username: "ada"}

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var createCalled bool
		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				createFunc: func(_ context.Context, b *domain.Board) error {
					createCalled = true
					assert.Equal(t, projectID, b.ProjectID)
					assert.Equal(t, "Sprint 14", b.Title)
					assert.Equal(t, user.UserID, b.CreatedBy)
					return nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.PostCtx(userCtx(user), "/boards", map[string]any{
			"projectId": projectID.String(),
			"title":     "Sprint 14",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, createCalled, "store.Boards().Create must be invoked")

		var body domain.Board
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Sprint 14", body.Title)
		assert.NotEqual(t, uuid.Nil, body.ID)

		require.Equal(t, 1, pub.noticeCount())
		assert.Equal(t, projectID, pub.notices[0].ProjectID)
	})

	t.Run("no_identity", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{boards: &mockBoardRepo{}}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.Post("/boards", map[string]any{
			"projectId": projectID.String(),
			"title":     "Sprint 14",
		})

		require.Equal(t, http.StatusForbidden, resp.Code)
		assert.Zero(t, pub.noticeCount())
	})

	t.Run("store_error_suppresses_publish", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				createFunc: func(_ context.Context, _ *domain.Board) error {
					return errors.New("db down")
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.PostCtx(userCtx(user), "/boards", map[string]any{
			"projectId": projectID.String(),
			"title":     "Sprint 14",
		})

		require.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Zero(t, pub.noticeCount(), "failed write must not publish")
	})
}

func TestGetBoard(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	user := domain.Identity{UserID: uuid.New(), Username: "ada"}

	t.Run("full_view", func(t *testing.T) {
		t.Parallel()

		board := &domain.Board{ID: boardID, Title: "Sprint 14"}
		lists := []*domain.List{{ID: uuid.New(), BoardID: boardID, Title: "Doing", Position: 1}}
		cards := []*domain.Card{{ID: uuid.New(), BoardID: boardID, ListID: lists[0].ID, Title: "Fix login"}}

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Board, error) {
					assert.Equal(t, boardID, id)
					return board, nil
				},
			},
			lists: &mockListRepo{
				listByBoardFunc: func(_ context.Context, _ uuid.UUID) ([]*domain.List, error) {
					return lists, nil
				},
			},
			cards: &mockCardRepo{
				listByBoardFunc: func(_ context.Context, _ uuid.UUID) ([]*domain.Card, error) {
					return cards, nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.GetCtx(userCtx(user), "/boards/"+boardID.String())

		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.BoardView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Sprint 14", body.Board.Title)
		require.Len(t, body.Lists, 1)
		require.Len(t, body.Cards, 1)
		assert.Equal(t, "Fix login", body.Cards[0].Title)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Board, error) {
					return nil, domain.ErrNotFound
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.GetCtx(userCtx(user), "/boards/"+uuid.NewString())

		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestUpdateBoard(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	boardID := uuid.New()
	user := domain.Identity{UserID: uuid.New(), Username: "ada"}

	t.Run("rename_publishes_board_and_project", func(t *testing.T) {
		t.Parallel()

		var updateCalled bool
		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Board, error) {
					return &domain.Board{ID: boardID, ProjectID: projectID, Title: "old"}, nil
				},
				updateFunc: func(_ context.Context, b *domain.Board) error {
					updateCalled = true
					assert.Equal(t, "renamed", b.Title)
					return nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.PutCtx(userCtx(user), "/boards/"+boardID.String(), map[string]any{
			"title": "renamed",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, updateCalled)

		require.Equal(t, 1, pub.updateCount())
		assert.Equal(t, boardID, pub.updates[0].BoardID)
		require.Equal(t, 1, pub.noticeCount())
		assert.Equal(t, projectID, pub.notices[0].ProjectID)
	})

	t.Run("store_error_suppresses_publish", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Board, error) {
					return &domain.Board{ID: boardID, ProjectID: projectID, Title: "old"}, nil
				},
				updateFunc: func(_ context.Context, _ *domain.Board) error {
					return errors.New("db down")
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, pub)

		resp := api.PutCtx(userCtx(user), "/boards/"+boardID.String(), map[string]any{
			"title": "renamed",
		})

		require.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Zero(t, pub.updateCount())
		assert.Zero(t, pub.noticeCount())
	})
}

func TestDeleteBoard(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	boardID := uuid.New()
	user := domain.Identity{UserID: uuid.New(), Username: "ada"}

	pub := &recordingPublisher{}
	_, api := humatest.New(t)
	store := &mockDataStore{
		boards: &mockBoardRepo{
			getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Board, error) {
				return &domain.Board{ID: boardID, ProjectID: projectID}, nil
			},
			deleteFunc: func(_ context.Context, id uuid.UUID) error {
				assert.Equal(t, boardID, id)
				return nil
			},
		},
	}
	v1.RegisterBoardRoutes(api, store, pub)

	resp := api.DeleteCtx(userCtx(user), "/boards/"+boardID.String())

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, 1, pub.noticeCount())
	assert.Equal(t, projectID, pub.notices[0].ProjectID)
}
