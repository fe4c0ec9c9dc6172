package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanloop/kanloop/internal/domain"
)

type Store struct {
	pool   *pgxpool.Pool
	boards *BoardRepo
	lists  *ListRepo
	cards  *CardRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:   pool,
		boards: NewBoardRepo(pool),
		lists:  NewListRepo(pool),
		cards:  NewCardRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Boards() domain.BoardRepository { return s.boards }
func (s *Store) Lists() domain.ListRepository   { return s.lists }
func (s *Store) Cards() domain.CardRepository   { return s.cards }
