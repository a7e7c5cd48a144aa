package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
)

type stubAuthRepo struct {
	users     map[string]*domain.User
	findErr   error
	updateErr error
	updates   int
}

func newStubAuthRepo(users ...*domain.User) *stubAuthRepo {
	r := &stubAuthRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) UpdatePassword(_ context.Context, id, hash string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.ChangePassword = false
	r.updates++
	return nil
}

type stubRevocations struct {
	since     map[string]int64
	lookupErr error
}

func (s *stubRevocations) ValidSince(_ context.Context, userID string) (int64, error) {
	if s.lookupErr != nil {
		return 0, s.lookupErr
	}
	return s.since[userID], nil
}

func (s *stubRevocations) RevokeBefore(_ context.Context, userID string, unix int64) error {
	if s.since == nil {
		s.since = make(map[string]int64)
	}
	s.since[userID] = unix
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func testRegistry() *domain.BucketRegistry {
	return domain.NewBucketRegistry([]domain.Bucket{
		{Name: "photos", Region: "ap-south-1"},
		{Name: "archive", Region: "us-east-1"},
	})
}

func newTestAuthService(repo ports.AuthRepository, opts ...AuthOption) (*AuthService, *TokenIssuer) {
	tokens := NewTokenIssuer("secret", time.Hour, 30*24*time.Hour)
	opts = append([]AuthOption{WithHashCost(bcrypt.MinCost)}, opts...)
	return NewAuthService(repo, tokens, testRegistry(), zerolog.Nop(), opts...), tokens
}

func activeUser(t *testing.T) *domain.User {
	return &domain.User{
		ID:             "u1",
		Email:          "a@x.com",
		Name:           "Alice",
		PasswordHash:   mustHash(t, "secret"),
		Active:         true,
		ChangePassword: true,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, tokens := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", res.Tokens)
	}

	id, err := tokens.Parse(res.Tokens.AccessToken, domain.TokenAccess)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if id.UserID != "u1" {
		t.Fatalf("expected identity u1, got %q", id.UserID)
	}
	if id.Profile.Email != "a@x.com" || !id.Profile.ChangePassword {
		t.Fatalf("unexpected profile: %+v", id.Profile)
	}
	if len(id.Profile.Buckets) != 2 || id.Profile.Buckets[0] != "archive" {
		t.Fatalf("expected full bucket list, got %v", id.Profile.Buckets)
	}
	if got := id.Expires.Sub(id.IssuedAt); got != time.Hour {
		t.Fatalf("expected 1h access lifetime, got %s", got)
	}

	rid, err := tokens.Parse(res.Tokens.RefreshToken, domain.TokenRefresh)
	if err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
	if got := rid.Expires.Sub(rid.IssuedAt); got != 30*24*time.Hour {
		t.Fatalf("expected 30d refresh lifetime, got %s", got)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	inactive := activeUser(t)
	inactive.ID = "u2"
	inactive.Email = "b@x.com"
	inactive.Active = false

	repo := newStubAuthRepo(activeUser(t), inactive)
	svc, _ := newTestAuthService(repo)

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"wrong password", "a@x.com", "nope", domain.ErrInvalidCredentials},
		{"inactive", "b@x.com", "secret", domain.ErrInactiveUser},
		{"unknown email", "ghost@x.com", "secret", domain.ErrUserNotFound},
		{"empty password", "a@x.com", "", domain.ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if res != nil {
				t.Fatalf("expected no tokens, got %+v", res)
			}
		})
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := newStubAuthRepo()
	repo.findErr = errors.New("connection reset")
	svc, _ := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err == nil || errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestAuthService_Refresh_Success(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, tokens := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	res, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if res.Tokens.RefreshToken != "" {
		t.Fatalf("refresh token must not be rotated")
	}
	id, err := tokens.Parse(res.Tokens.AccessToken, domain.TokenAccess)
	if err != nil || id.UserID != "u1" {
		t.Fatalf("unexpected access token: %v %+v", err, id)
	}
}

func TestAuthService_Refresh_FailsClosed(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, _ := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	expired := NewTokenIssuer("secret", time.Hour, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredPair, err := expired.Issue("u1", domain.Profile{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	forged := NewTokenIssuer("other-secret", time.Hour, time.Hour)
	forgedPair, err := forged.Issue("u1", domain.Profile{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Swap in another token's payload while keeping the original signature.
	orig := strings.Split(login.Tokens.RefreshToken, ".")
	other := strings.Split(forgedPair.RefreshToken, ".")
	tampered := orig[0] + "." + other[1] + "." + orig[2]

	for name, tok := range map[string]string{
		"expired":      expiredPair.RefreshToken,
		"wrong secret": forgedPair.RefreshToken,
		"tampered":     tampered,
		"access token": login.Tokens.AccessToken,
		"garbage":      "not-a-token",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := svc.Refresh(context.Background(), tok)
			if !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
			if res != nil {
				t.Fatalf("must not issue a token")
			}
		})
	}
}

func TestAuthService_Refresh_InactiveUser(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, _ := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	repo.users["u1"].Active = false
	if _, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, domain.ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}

	delete(repo.users, "u1")
	if _, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, domain.ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser for vanished user, got %v", err)
	}
}

func TestAuthService_ChangePassword_Success(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, _ := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), ports.ChangePasswordInput{
		UserID:          "u1",
		CurrentPassword: "secret",
		NewPassword:     "N3w#Secret",
	})
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	stored := repo.users["u1"]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")) == nil {
		t.Fatalf("old password still validates")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("N3w#Secret")) != nil {
		t.Fatalf("new password does not validate")
	}
	if stored.ChangePassword {
		t.Fatalf("change_password flag not cleared")
	}
	if repo.updates != 1 {
		t.Fatalf("expected a single update, got %d", repo.updates)
	}
}

func TestAuthService_ChangePassword_Rejections(t *testing.T) {
	inactive := activeUser(t)
	inactive.ID = "u2"
	inactive.Active = false

	cases := []struct {
		name string
		in   ports.ChangePasswordInput
		want error
	}{
		{"same password", ports.ChangePasswordInput{UserID: "u1", CurrentPassword: "secret", NewPassword: "secret"}, domain.ErrSamePassword},
		{"weak password", ports.ChangePasswordInput{UserID: "u1", CurrentPassword: "secret", NewPassword: "weak"}, domain.ErrValidation},
		{"wrong current", ports.ChangePasswordInput{UserID: "u1", CurrentPassword: "guess", NewPassword: "N3w#Secret"}, domain.ErrIncorrectPassword},
		{"inactive", ports.ChangePasswordInput{UserID: "u2", CurrentPassword: "secret", NewPassword: "N3w#Secret"}, domain.ErrInactiveUser},
		{"unknown user", ports.ChangePasswordInput{UserID: "ghost", CurrentPassword: "secret", NewPassword: "N3w#Secret"}, domain.ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubAuthRepo(activeUser(t), inactive)
			svc, _ := newTestAuthService(repo)

			if err := svc.ChangePassword(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if repo.updates != 0 {
				t.Fatalf("store must not be updated")
			}
		})
	}
}

func TestAuthService_ChangePassword_KeepsTokensWithoutRevocation(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	svc, _ := newTestAuthService(repo)

	login, _ := svc.Login(context.Background(), "a@x.com", "secret")
	if err := svc.ChangePassword(context.Background(), ports.ChangePasswordInput{
		UserID: "u1", CurrentPassword: "secret", NewPassword: "N3w#Secret",
	}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := svc.Verify(context.Background(), login.Tokens.AccessToken, domain.TokenAccess); err != nil {
		t.Fatalf("old token should remain valid: %v", err)
	}
}

func TestAuthService_Verify_Revocation(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	revs := &stubRevocations{}
	svc, tokens := newTestAuthService(repo, WithRevocation(revs))

	tokens.now = func() time.Time { return time.Now().Add(-time.Minute) }
	login, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	tokens.now = time.Now

	if _, err := svc.Verify(context.Background(), login.Tokens.AccessToken, domain.TokenAccess); err != nil {
		t.Fatalf("token should be valid before rotation: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), ports.ChangePasswordInput{
		UserID: "u1", CurrentPassword: "secret", NewPassword: "N3w#Secret",
	}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := svc.Verify(context.Background(), login.Tokens.AccessToken, domain.TokenAccess); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected refresh to be revoked, got %v", err)
	}

	fresh, err := svc.Login(context.Background(), "a@x.com", "N3w#Secret")
	if err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := svc.Verify(context.Background(), fresh.Tokens.AccessToken, domain.TokenAccess); err != nil {
		t.Fatalf("fresh token should be valid: %v", err)
	}
}

func TestAuthService_Verify_RevocationLookupFailsClosed(t *testing.T) {
	repo := newStubAuthRepo(activeUser(t))
	revs := &stubRevocations{lookupErr: errors.New("redis down")}
	svc, _ := newTestAuthService(repo, WithRevocation(revs))

	login, err := svc.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := svc.Verify(context.Background(), login.Tokens.AccessToken, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
