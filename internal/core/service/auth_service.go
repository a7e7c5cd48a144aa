package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
	"github.com/s3ui/bucketgate/internal/core/validation"
)

// dummyHash is compared against when no user matches a login so that the
// response time does not reveal whether the email exists.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("bucketgate-dummy-password"), bcrypt.DefaultCost)
	return h
})

// AuthService implements login, token refresh, password rotation and token
// verification.
type AuthService struct {
	repo        ports.AuthRepository
	tokens      *TokenIssuer
	buckets     *domain.BucketRegistry
	passwords   validation.PasswordPolicy
	revocations ports.TokenRevocationStore
	hashCost    int
	log         zerolog.Logger
	now         func() time.Time
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithPasswordPolicy replaces the default password policy.
func WithPasswordPolicy(p validation.PasswordPolicy) AuthOption {
	return func(s *AuthService) { s.passwords = p }
}

// WithRevocation enables rejecting tokens issued before the bearer's last
// password change.
func WithRevocation(store ports.TokenRevocationStore) AuthOption {
	return func(s *AuthService) { s.revocations = store }
}

// WithHashCost sets the bcrypt cost used for new password hashes.
func WithHashCost(cost int) AuthOption {
	return func(s *AuthService) { s.hashCost = cost }
}

func NewAuthService(repo ports.AuthRepository, tokens *TokenIssuer, buckets *domain.BucketRegistry, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:      repo,
		tokens:    tokens,
		buckets:   buckets,
		passwords: validation.DefaultPasswordPolicy(),
		hashCost:  bcrypt.DefaultCost,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// visibleBuckets is the capability set for u. Every authenticated user sees
// the whole registry; per-user scoping would be decided here.
func (s *AuthService) visibleBuckets(_ *domain.User) []string {
	return s.buckets.Names()
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	profile := domain.NewProfile(user, s.visibleBuckets(user))
	tokens, err := s.tokens.Issue(user.ID, profile)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.AuthResult{Tokens: tokens, Profile: profile}, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	id, err := s.Verify(ctx, refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInactiveUser
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	profile := domain.NewProfile(user, s.visibleBuckets(user))
	access, err := s.tokens.IssueAccess(user.ID, profile)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &ports.AuthResult{Tokens: domain.TokenPair{AccessToken: access}, Profile: profile}, nil
}

// ChangePassword rotates the password of an active user and clears the
// change-password flag. Tokens already issued stay valid unless revocation
// is enabled.
func (s *AuthService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	user, err := s.repo.FindByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("change password: %w", err)
	}
	if !user.Active {
		return domain.ErrInactiveUser
	}

	if in.NewPassword == in.CurrentPassword {
		return domain.ErrSamePassword
	}
	if err := s.passwords.Check(in.NewPassword); err != nil {
		return &domain.ValidationError{Reason: err.Error()}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return domain.ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if s.revocations != nil {
		if err := s.revocations.RevokeBefore(ctx, user.ID, s.now().Unix()); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke tokens after password change")
		}
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// Verify decodes token and, when revocation is enabled, rejects it if it was
// issued before the bearer's last password change. Lookup failures reject.
func (s *AuthService) Verify(ctx context.Context, token string, want domain.TokenType) (*domain.Identity, error) {
	id, err := s.tokens.Parse(token, want)
	if err != nil {
		return nil, err
	}
	if s.revocations == nil {
		return id, nil
	}

	since, err := s.revocations.ValidSince(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: revocation lookup: %v", domain.ErrInvalidToken, err)
	}
	if since > 0 && id.IssuedAt.Unix() < since {
		return nil, domain.ErrTokenRevoked
	}
	return id, nil
}
