package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Bridge relays board frames through Redis pub/sub so that every service
// instance, the origin included, delivers from the same ordered stream.
// It implements realtime.Bridge.
type Bridge struct {
	client *Client
}

func NewBridge(client *Client) *Bridge {
	return &Bridge{client: client}
}

// Publish sends one encoded frame onto the board's channel.
func (b *Bridge) Publish(ctx context.Context, boardID uuid.UUID, frame []byte) error {
	if err := b.client.rdb.Publish(ctx, BoardChannel(boardID), frame).Err(); err != nil {
		return fmt.Errorf("redis.Bridge.Publish: %w", err)
	}
	return nil
}

// Run consumes the board channel pattern and hands each frame to deliver,
// blocking until ctx is cancelled. Malformed channel names are skipped.
func (b *Bridge) Run(ctx context.Context, deliver func(boardID uuid.UUID, frame []byte)) error {
	sub := b.client.rdb.PSubscribe(ctx, BoardChannelPattern())
	defer func() { _ = sub.Close() }()

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis.Bridge.Run: receive confirmation: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			boardID, err := ParseBoardChannel(msg.Channel)
			if err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("bridge: unexpected channel")
				continue
			}
			deliver(boardID, []byte(msg.Payload))
		}
	}
}
