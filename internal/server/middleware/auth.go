package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kanloop/kanloop/internal/auth"
)

// Auth validates the identity token and stores the verified identity in the
// request context. Tokens are read from the Authorization header or, for
// websocket upgrades where browsers cannot set headers, the token query
// parameter.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("token")
			}
			if tok == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.Validate(jwtSecret, tok)
			if err != nil {
				log.Debug().Err(err).Msg("auth: token rejected")
				unauthorized(w)
				return
			}

			user, err := claims.Identity()
			if err != nil {
				log.Debug().Err(err).Msg("auth: malformed identity claims")
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
}
