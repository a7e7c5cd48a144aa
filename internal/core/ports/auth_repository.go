package ports

import (
	"context"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// AuthRepository is the credential store. Lookups return
// domain.ErrUserNotFound when no record matches.
type AuthRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdatePassword replaces the password hash and clears the
	// change-password flag in a single record update.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenRevocationStore tracks, per user, the instant before which issued
// tokens are no longer honoured.
type TokenRevocationStore interface {
	ValidSince(ctx context.Context, userID string) (int64, error)
	RevokeBefore(ctx context.Context, userID string, unix int64) error
}
