package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanloop/kanloop/internal/auth"
	"github.com/kanloop/kanloop/internal/domain"
	"github.com/kanloop/kanloop/internal/server/middleware"
)

const testSecret = "test-secret-key-very-long-and-secure"

// echoIdentity writes the authenticated username, proving the context flow.
func echoIdentity(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(user.Username))
	})
}

func TestAuth(t *testing.T) {
	t.Parallel()

	user := domain.Identity{UserID: uuid.New(), Username: "alice"}
	token, err := auth.Issue(testSecret, user, time.Minute)
	require.NoError(t, err)

	t.Run("bearer token accepted", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware.Auth(testSecret)(echoIdentity(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
	})

	t.Run("query token accepted for websocket upgrades", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		rec := httptest.NewRecorder()

		middleware.Auth(testSecret)(echoIdentity(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing credentials rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		rec := httptest.NewRecorder()

		middleware.Auth(testSecret)(echoIdentity(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forged token rejected", func(t *testing.T) {
		t.Parallel()

		forged, issueErr := auth.Issue("attacker-controlled-secret-value!", user, time.Minute)
		require.NoError(t, issueErr)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()

		middleware.Auth(testSecret)(echoIdentity(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimitByIP(ctx, 1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1], "burst of 2 allowed")
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)

	// A different IP has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// mapCache is an in-memory ResponseCache for middleware tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func TestCacheGET(t *testing.T) {
	t.Parallel()

	user := domain.Identity{UserID: uuid.New(), Username: "alice"}

	newHandler := func(hits *int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			*hits++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"boards":[]}`))
		})
	}

	t.Run("second GET served from cache", func(t *testing.T) {
		t.Parallel()

		hits := 0
		handler := middleware.CacheGET(newMapCache(), time.Minute)(newHandler(&hits))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/boards?project_id=1", nil)
			req = req.WithContext(middleware.WithIdentity(req.Context(), user))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"boards":[]}`, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		}

		assert.Equal(t, 1, hits, "second request must not reach the handler")
	})

	t.Run("cache is per user", func(t *testing.T) {
		t.Parallel()

		hits := 0
		handler := middleware.CacheGET(newMapCache(), time.Minute)(newHandler(&hits))

		for _, u := range []domain.Identity{user, {UserID: uuid.New(), Username: "bob"}} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/boards", nil)
			req = req.WithContext(middleware.WithIdentity(req.Context(), u))
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		assert.Equal(t, 2, hits)
	})

	t.Run("non-GET bypasses cache", func(t *testing.T) {
		t.Parallel()

		hits := 0
		handler := middleware.CacheGET(newMapCache(), time.Minute)(newHandler(&hits))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", nil)
			req = req.WithContext(middleware.WithIdentity(req.Context(), user))
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		assert.Equal(t, 2, hits)
	})
}
