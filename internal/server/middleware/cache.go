package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ResponseCache is the TTL key-value store backing CacheGET.
// *redis.ResponseCache satisfies this interface.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cachedResponse is the stored envelope.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// CacheGET memoizes successful GET responses per user for the given TTL.
// Plain cache-aside: a hit is served verbatim, a miss passes through and
// stores the response. Mutations are reflected once the entry expires.
func CacheGET(cache ResponseCache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || cache == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, ok := IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := "resp:" + user.UserID.String() + ":" + r.URL.RequestURI()

			if raw, hit, err := cache.Get(r.Context(), key); err == nil && hit {
				var stored cachedResponse
				if json.Unmarshal(raw, &stored) == nil {
					w.Header().Set("Content-Type", stored.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
					return
				}
			} else if err != nil {
				log.Debug().Err(err).Str("key", key).Msg("response cache lookup failed")
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}

			raw, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := cache.Set(r.Context(), key, raw, ttl); err != nil {
				log.Debug().Err(err).Str("key", key).Msg("response cache store failed")
			}
		})
	}
}

// responseRecorder tees the response body while passing it through.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
