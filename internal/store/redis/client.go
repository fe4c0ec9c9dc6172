// Package redis backs the two cross-cutting stores this service keeps in
// Redis: the pub/sub bridge that fans board events out across instances,
// and the TTL response cache.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis.Client.Close: %w", err)
	}
	return nil
}

const boardChannelPrefix = "board:"

// BoardChannel returns the pub/sub channel carrying one board's events.
func BoardChannel(boardID uuid.UUID) string {
	return boardChannelPrefix + boardID.String()
}

// BoardChannelPattern matches every board channel, for pattern subscribe.
func BoardChannelPattern() string {
	return boardChannelPrefix + "*"
}

// ParseBoardChannel extracts the board ID from a channel name.
func ParseBoardChannel(channel string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(channel, boardChannelPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("redis.ParseBoardChannel: %q is not a board channel", channel)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("redis.ParseBoardChannel: %w", err)
	}
	return id, nil
}
