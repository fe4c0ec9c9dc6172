package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kanloop/kanloop/internal/domain"
)

// fakeSender captures enqueued frames for assertions.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	drop   bool // simulate a full outbox
}

func (f *fakeSender) Enqueue(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.drop {
		return false
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.frames = append(f.frames, cp)
	return true
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSender) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// wireEvent mirrors Event with the payload left undecoded.
type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func (f *fakeSender) events(t *testing.T) []wireEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]wireEvent, 0, len(f.frames))
	for _, frame := range f.frames {
		var ev wireEvent
		require.NoError(t, json.Unmarshal(frame, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeSender) named(t *testing.T, name string) []wireEvent {
	t.Helper()
	var out []wireEvent
	for _, ev := range f.events(t) {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func unmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}

func decodeUsers(t *testing.T, data json.RawMessage) []domain.Identity {
	t.Helper()
	var users []domain.Identity
	require.NoError(t, json.Unmarshal(data, &users))
	return users
}

func testIdentity(name string) domain.Identity {
	return domain.Identity{UserID: uuidFor(name), Username: name}
}

// uuidFor derives a stable UUID from a short name so tests read well.
func uuidFor(name string) uuid.UUID {
	var id uuid.UUID
	copy(id[:], name)
	return id
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
