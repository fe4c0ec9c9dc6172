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

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cards (id, board_id, list_id, title, description, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.BoardID, c.ListID, c.Title, c.Description, c.Position, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	var c domain.Card

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, list_id, title, description, position, created_at, updated_at
		 FROM cards WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.BoardID, &c.ListID, &c.Title, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CardRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, list_id, title, description, position, created_at, updated_at
		 FROM cards WHERE board_id = $1
		 ORDER BY list_id, position
		 LIMIT 2000`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		if scanErr := rows.Scan(&c.ID, &c.BoardID, &c.ListID, &c.Title, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("cardRepo.ListByBoard: scan: %w", scanErr)
		}
		cards = append(cards, &c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("cardRepo.ListByBoard: %w", rows.Err())
	}

	return cards, nil
}

func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Title, c.Description, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) Move(ctx context.Context, id, toListID uuid.UUID, position int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET list_id = $2, position = $3, updated_at = now() WHERE id = $1`,
		id, toListID, position,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Move: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
