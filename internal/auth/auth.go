// Package auth resolves the caller's identity from a bearer token issued by
// the external OAuth provider. The OAuth flow itself (Kakao login, token
// issuance, refresh) happens outside this server; all we ever see is a signed
// JWT carrying the subject id and optional profile hints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated subject extracted from a session token.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type contextKey string

const identityContextKey contextKey = "identity"

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type sessionClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 session token and returns the identity it
// carries. A token without a subject is rejected.
func ParseToken(tokenString, secret string) (*Identity, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		ID:      claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}

// FromRequest extracts and validates the bearer token on a request.
func FromRequest(r *http.Request, secret string) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		// Fallback to cookie for browser clients
		if cookie, err := r.Cookie("session_token"); err == nil {
			return ParseToken(cookie.Value, secret)
		}
		return nil, ErrNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrInvalidToken
	}

	return ParseToken(parts[1], secret)
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey).(*Identity)
	return id
}
