package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanloop/kanloop/internal/domain"
)

type ListRepo struct {
	pool *pgxpool.Pool
}

func NewListRepo(pool *pgxpool.Pool) *ListRepo {
	return &ListRepo{pool: pool}
}

func (r *ListRepo) Create(ctx context.Context, l *domain.List) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lists (id, board_id, title, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.BoardID, l.Title, l.Position, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("listRepo.Create: %w", err)
	}

	return nil
}

func (r *ListRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	var l domain.List

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, title, position, created_at, updated_at
		 FROM lists WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("listRepo.GetByID: %w", err)
	}

	return &l, nil
}

func (r *ListRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, title, position, created_at, updated_at
		 FROM lists WHERE board_id = $1
		 ORDER BY position`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("listRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var lists []*domain.List
	for rows.Next() {
		var l domain.List
		if scanErr := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("listRepo.ListByBoard: scan: %w", scanErr)
		}
		lists = append(lists, &l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("listRepo.ListByBoard: %w", rows.Err())
	}

	return lists, nil
}

func (r *ListRepo) Update(ctx context.Context, l *domain.List) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lists SET title = $2, position = $3, updated_at = $4 WHERE id = $1`,
		l.ID, l.Title, l.Position, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("listRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// Reorder rewrites every list position for the board in one transaction so
// concurrent readers never observe a half-applied order.
func (r *ListRepo) Reorder(ctx context.Context, boardID uuid.UUID, ordered []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("listRepo.Reorder: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for pos, id := range ordered {
		tag, execErr := tx.Exec(ctx,
			`UPDATE lists SET position = $3, updated_at = now() WHERE id = $1 AND board_id = $2`,
			id, boardID, pos,
		)
		if execErr != nil {
			return fmt.Errorf("listRepo.Reorder: %w", execErr)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("listRepo.Reorder: list %s: %w", id, domain.ErrNotFound)
		}
	}

	// ordered must name every list of the board, or positions would collide
	// with lists the caller never saw.
	var total int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM lists WHERE board_id = $1`, boardID,
	).Scan(&total); err != nil {
		return fmt.Errorf("listRepo.Reorder: count: %w", err)
	}
	if total != len(ordered) {
		return fmt.Errorf("listRepo.Reorder: %d lists ordered, board has %d: %w",
			len(ordered), total, domain.ErrConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("listRepo.Reorder: commit: %w", err)
	}

	return nil
}

func (r *ListRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("listRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
