package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signToken(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	token := signToken(t, sessionClaims{
		Name:  "Alice",
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kakao-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, secret)

	identity, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "kakao-123", identity.ID)
	assert.Equal(t, "Alice", identity.Name)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestParseTokenRejections(t *testing.T) {
	valid := jwt.RegisteredClaims{
		Subject:   "kakao-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	// Wrong key
	token := signToken(t, valid, "other-secret")
	_, err := ParseToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired
	token = signToken(t, jwt.RegisteredClaims{
		Subject:   "kakao-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, secret)
	_, err = ParseToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// No subject
	token = signToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)
	_, err = ParseToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage
	_, err = ParseToken("not-a-token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Unconfigured secret never validates anything
	_, err = ParseToken(signToken(t, valid, secret), "")
	assert.Error(t, err)
}

func TestFromRequest(t *testing.T) {
	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "kakao-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)

	// Bearer header
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	identity, err := FromRequest(req, secret)
	require.NoError(t, err)
	assert.Equal(t, "kakao-123", identity.ID)

	// Cookie fallback
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	identity, err = FromRequest(req, secret)
	require.NoError(t, err)
	assert.Equal(t, "kakao-123", identity.ID)

	// Nothing at all
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	_, err = FromRequest(req, secret)
	assert.ErrorIs(t, err, ErrNoToken)

	// Malformed scheme
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc123")
	_, err = FromRequest(req, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Nil(t, IdentityFromContext(req.Context()))

	id := &Identity{ID: "kakao-123"}
	ctx := WithIdentity(req.Context(), id)
	assert.Equal(t, id, IdentityFromContext(ctx))
}
