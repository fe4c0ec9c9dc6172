// Package auth validates the signed identity tokens issued by the external
// session service. Credential checking and session issuance live outside
// this service; Issue exists for tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kanloop/kanloop/internal/domain"
)

// Claims holds the JWT token payload carrying the verified user identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"name"`
	UserPic  string `json:"pic,omitempty"`
}

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Identity converts validated claims into the domain identity.
func (c *Claims) Identity() (domain.Identity, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Claims.Identity: %w", ErrInvalidToken)
	}
	return domain.Identity{
		UserID:   userID,
		Username: c.Username,
		UserPic:  c.UserPic,
	}, nil
}

// Issue creates a signed HS256 token for the given identity.
func Issue(secret string, user domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "kanloop",
		},
		UserID:   user.UserID.String(),
		Username: user.Username,
		UserPic:  user.UserPic,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.Issue: %w", err)
	}

	return signed, nil
}

// Validate parses and validates a token string. Returns the embedded claims.
func Validate(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("auth.Validate: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.Validate: %w", ErrInvalidToken)
	}

	return claims, nil
}
