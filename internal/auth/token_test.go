package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanloop/kanloop/internal/auth"
	"github.com/kanloop/kanloop/internal/domain"
)

const testSecret = "test-secret-key-very-long-and-secure"

func TestToken_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	user := domain.Identity{
		UserID:   uuid.New(),
		Username: "alice",
		UserPic:  "https://cdn.example.com/alice.png",
	}

	token, err := auth.Issue(testSecret, user, 5*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.Validate(testSecret, token)
	require.NoError(t, err)

	assert.Equal(t, user.UserID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "https://cdn.example.com/alice.png", claims.UserPic)
	assert.Equal(t, "kanloop", claims.Issuer)

	got, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestToken_Validate(t *testing.T) {
	t.Parallel()

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		token, err := auth.Issue(testSecret, domain.Identity{UserID: uuid.New(), Username: "alice"}, time.Minute)
		require.NoError(t, err)

		_, err = auth.Validate("some-other-secret-that-is-wrong!", token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		token, err := auth.Issue(testSecret, domain.Identity{UserID: uuid.New(), Username: "alice"}, -time.Minute)
		require.NoError(t, err)

		_, err = auth.Validate(testSecret, token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		_, err := auth.Validate(testSecret, "not.a.jwt")
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestClaims_Identity_BadUserID(t *testing.T) {
	t.Parallel()

	claims := &auth.Claims{UserID: "not-a-uuid", Username: "alice"}
	_, err := claims.Identity()
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
