package ports

import (
	"context"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Tokens  domain.TokenPair
	Profile domain.Profile
}

// ChangePasswordInput carries a password rotation request for the bearer of
// an already verified access token.
type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	// Verify checks signature, expiry, token type and revocation.
	Verify(ctx context.Context, token string, want domain.TokenType) (*domain.Identity, error)
}
