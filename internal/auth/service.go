package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"backend-routeshare/internal/shared/apperr"
)

// User is the identity the external auth provider vouches for.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider resolves a bearer token to a user.
type Provider interface {
	Verify(ctx context.Context, token string) (User, error)
}

// Claims mirrors the access tokens issued by the auth provider: the user id
// travels in "sub".
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 tokens signed with the provider's shared secret.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

var parseClaimsFn = jwt.ParseWithClaims

func (p *JWTProvider) Verify(_ context.Context, token string) (User, error) {
	parsed, err := parseClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{}, apperr.Unauthorized("token expired")
		}
		return User{}, apperr.Unauthorized("token invalid")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return User{}, apperr.Unauthorized("token invalid")
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a token the way the provider does. Used by local tooling and tests.
func (p *JWTProvider) Sign(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
