package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	outboxSize   = 64
	writeTimeout = 10 * time.Second
)

// client adapts one websocket connection to the realtime Sender contract:
// Enqueue never blocks, and frames to a slow or closing peer are dropped.
type client struct {
	conn   *websocket.Conn
	outbox chan []byte
	closed chan struct{}
	once   sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		closed: make(chan struct{}),
	}
}

// Enqueue hands a frame to the write pump. Delivery is at-most-once; a full
// outbox means the peer is too slow and the frame is dropped.
func (c *client) Enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.outbox <- frame:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

// Close marks the client terminated. Pending sends are abandoned; the write
// pump exits on its next iteration.
func (c *client) Close() {
	c.once.Do(func() {
		close(c.closed)
	})
}

// writePump drains the outbox onto the wire. A write failure ends the pump;
// the read loop observes the broken connection and drives the disconnect
// cascade.
func (c *client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case frame := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
