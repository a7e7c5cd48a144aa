package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

func TestTokenIssuer_ClaimsLayout(t *testing.T) {
	issuer := NewTokenIssuer("secret", 0, 0)
	profile := domain.Profile{Email: "a@x.com", Name: "Alice", Active: true, Buckets: []string{"photos"}}

	pair, err := issuer.Issue("u1", profile)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "access", claims["type"])
	assert.Equal(t, "a@x.com", claims["email"])
	assert.Equal(t, "Alice", claims["name"])
	assert.Equal(t, true, claims["active"])
	assert.Equal(t, false, claims["change_password"])
	assert.Equal(t, []any{"photos"}, claims["aws_buckets"])
	assert.NotEmpty(t, claims["jti"])
}

func TestTokenIssuer_DefaultLifetimes(t *testing.T) {
	issuer := NewTokenIssuer("secret", 0, 0)
	pair, err := issuer.Issue("u1", domain.Profile{})
	require.NoError(t, err)

	access, err := issuer.Parse(pair.AccessToken, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, access.Expires.Sub(access.IssuedAt))

	refresh, err := issuer.Parse(pair.RefreshToken, domain.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, refresh.Expires.Sub(refresh.IssuedAt))
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)
	pair, err := issuer.Issue("u1", domain.Profile{})
	require.NoError(t, err)

	_, err = issuer.Parse(pair.RefreshToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = issuer.Parse(pair.AccessToken, domain.TokenRefresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: domain.TokenAccess,
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(hs512, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenIssuer_RequiresExpiryAndSubject(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		Type:             domain.TokenAccess,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(noExp, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Type:             domain.TokenAccess,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(noSub, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	pair, err := issuer.Issue("u1", domain.Profile{})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(pair.AccessToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
