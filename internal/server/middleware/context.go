package middleware

import (
	"context"

	"github.com/kanloop/kanloop/internal/domain"
)

type contextKey string

// ContextKeyIdentity carries the authenticated user identity.
const ContextKeyIdentity contextKey = "identity"

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(ContextKeyIdentity).(domain.Identity)
	return v, ok
}

// WithIdentity returns a context carrying the identity. Exposed for tests.
func WithIdentity(ctx context.Context, user domain.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, user)
}
