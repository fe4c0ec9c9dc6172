package realtime

import "sync"

// changeQueue is an unbounded FIFO of membership changes. push never blocks,
// so it is safe to call while holding the room manager lock; that is what
// preserves the per-room ordering of the change stream.
type changeQueue struct {
	mu     sync.Mutex
	items  []MembershipChange
	closed bool
	notify chan struct{} // cap 1, coalesced wakeup
}

func newChangeQueue() *changeQueue {
	return &changeQueue{notify: make(chan struct{}, 1)}
}

func (q *changeQueue) push(c MembershipChange) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, c)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest change, blocking while the queue is empty. Reports
// false once the queue is closed and fully drained.
func (q *changeQueue) next() (MembershipChange, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			c := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return c, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return MembershipChange{}, false
		}
		<-q.notify
	}
}

func (q *changeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
