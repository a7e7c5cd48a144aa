package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/s3ui/bucketgate/internal/api/metrics"
	"github.com/s3ui/bucketgate/internal/core/domain"
)

// Context keys set by Auth.
const (
	IdentityKey = "identity"
	TokenKey    = "token"
)

// TokenVerifier is the slice of the auth service the middleware needs.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, want domain.TokenType) (*domain.Identity, error)
}

// Auth verifies the bearer token as a token of type want and stores the
// resulting identity and the raw token in the echo context.
func Auth(verifier TokenVerifier, want domain.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return reject(c, "missing", "missing authorization header")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return reject(c, "malformed", "invalid authorization header")
			}

			identity, err := verifier.Verify(c.Request().Context(), token, want)
			if err != nil {
				if errors.Is(err, domain.ErrTokenRevoked) {
					return reject(c, "revoked", "token has been revoked")
				}
				return reject(c, "invalid", "invalid or expired token")
			}

			c.Set(IdentityKey, identity)
			c.Set(TokenKey, token)
			return next(c)
		}
	}
}

func reject(c echo.Context, reason, msg string) error {
	metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
	return c.JSON(http.StatusUnauthorized, map[string]string{"message": msg})
}

// IdentityFrom returns the identity stored by Auth, or nil.
func IdentityFrom(c echo.Context) *domain.Identity {
	id, _ := c.Get(IdentityKey).(*domain.Identity)
	return id
}

// BucketScope rejects requests whose :bucket path parameter is not among
// the buckets embedded in the caller's access token. It must run after Auth.
func BucketScope(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFrom(c)
			if identity == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "missing authentication claims"})
			}
			bucket := c.Param(param)
			for _, b := range identity.Profile.Buckets {
				if b == bucket {
					return next(c)
				}
			}
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Bucket not found"})
		}
	}
}
