package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kanloop/kanloop/internal/domain"
	"github.com/kanloop/kanloop/internal/realtime"
	"github.com/kanloop/kanloop/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject the authenticated identity for DoCtx
// ---------------------------------------------------------------------------

func userCtx(user domain.Identity) context.Context {
	return middleware.WithIdentity(context.Background(), user)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	boards domain.BoardRepository
	lists  domain.ListRepository
	cards  domain.CardRepository
}

func (m *mockDataStore) Boards() domain.BoardRepository { return m.boards }
func (m *mockDataStore) Lists() domain.ListRepository   { return m.lists }
func (m *mockDataStore) Cards() domain.CardRepository   { return m.cards }

// ---------------------------------------------------------------------------
// Recording Publisher
// ---------------------------------------------------------------------------

type publishedUpdate struct {
	BoardID uuid.UUID
	Kind    realtime.UpdateKind
	Payload any
}

type publishedNotice struct {
	ProjectID uuid.UUID
	Payload   any
}

// recordingPublisher captures realtime publications so tests can assert the
// publish-after-commit contract.
type recordingPublisher struct {
	mu      sync.Mutex
	updates []publishedUpdate
	notices []publishedNotice
}

func (p *recordingPublisher) BroadcastUpdate(_ context.Context, boardID uuid.UUID, kind realtime.UpdateKind, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, publishedUpdate{BoardID: boardID, Kind: kind, Payload: payload})
	return nil
}

func (p *recordingPublisher) NotifyProject(_ context.Context, projectID uuid.UUID, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, publishedNotice{ProjectID: projectID, Payload: payload})
	return nil
}

func (p *recordingPublisher) updateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates)
}

func (p *recordingPublisher) noticeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notices)
}

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc        func(ctx context.Context, b *domain.Board) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	listByProjectFunc func(ctx context.Context, projectID uuid.UUID) ([]*domain.Board, error)
	updateFunc        func(ctx context.Context, b *domain.Board) error
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Board, error) {
	return m.listByProjectFunc(ctx, projectID)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock ListRepository
// ---------------------------------------------------------------------------

type mockListRepo struct {
	createFunc      func(ctx context.Context, l *domain.List) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.List, error)
	listByBoardFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error)
	updateFunc      func(ctx context.Context, l *domain.List) error
	reorderFunc     func(ctx context.Context, boardID uuid.UUID, ordered []uuid.UUID) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockListRepo) Create(ctx context.Context, l *domain.List) error {
	return m.createFunc(ctx, l)
}

func (m *mockListRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockListRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockListRepo) Update(ctx context.Context, l *domain.List) error {
	return m.updateFunc(ctx, l)
}

func (m *mockListRepo) Reorder(ctx context.Context, boardID uuid.UUID, ordered []uuid.UUID) error {
	return m.reorderFunc(ctx, boardID, ordered)
}

func (m *mockListRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CardRepository
// ---------------------------------------------------------------------------

type mockCardRepo struct {
	createFunc      func(ctx context.Context, c *domain.Card) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	listByBoardFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error)
	updateFunc      func(ctx context.Context, c *domain.Card) error
	moveFunc        func(ctx context.Context, id, toListID uuid.UUID, position int) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Card) error {
	return m.createFunc(ctx, c)
}

func (m *mockCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCardRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockCardRepo) Update(ctx context.Context, c *domain.Card) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCardRepo) Move(ctx context.Context, id, toListID uuid.UUID, position int) error {
	return m.moveFunc(ctx, id, toListID, position)
}

func (m *mockCardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}
