package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/s3ui/bucketgate/internal/api/middleware"
	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
	"github.com/s3ui/bucketgate/internal/core/validation"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	refreshFn        func(ctx context.Context, token string) (*ports.AuthResult, error)
	changePasswordFn func(ctx context.Context, in ports.ChangePasswordInput) error
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*ports.AuthResult, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	return s.changePasswordFn(ctx, in)
}

func (s *stubAuthService) Verify(context.Context, string, domain.TokenType) (*domain.Identity, error) {
	return nil, errors.New("not used by handlers")
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator(validation.DefaultPasswordPolicy(), validation.DefaultFileNamePolicy())
	return e
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp.Message
}

func withIdentity(c echo.Context, userID string) {
	c.Set(middleware.IdentityKey, &domain.Identity{UserID: userID, Type: domain.TokenAccess})
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "a@x.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{
				Tokens:  domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
				Profile: domain.Profile{Email: "a@x.com", Name: "A", Active: true, Buckets: []string{"photos"}},
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonRequest(e, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["tokens"]["access_token"] != "acc" || resp["tokens"]["refresh_token"] != "ref" {
		t.Fatalf("unexpected tokens: %+v", resp["tokens"])
	}
	if resp["user"]["email"] != "a@x.com" {
		t.Fatalf("unexpected user: %+v", resp["user"])
	}
	if _, ok := resp["user"]["aws_buckets"]; !ok {
		t.Fatalf("aws_buckets missing from user: %+v", resp["user"])
	}
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	for _, svcErr := range []error{domain.ErrUserNotFound, domain.ErrInactiveUser, domain.ErrInvalidCredentials} {
		t.Run(svcErr.Error(), func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				loginFn: func(context.Context, string, string) (*ports.AuthResult, error) { return nil, svcErr },
			})
			c, rec := jsonRequest(e, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"nope"}`)
			if err := h.Login(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if msg := decodeMessage(t, rec); msg != msgNoUser {
				t.Fatalf("unexpected message %q", msg)
			}
			if strings.Contains(rec.Body.String(), "token") {
				t.Fatalf("failure response carries tokens: %s", rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Login_StoreErrorPropagates(t *testing.T) {
	e := newEcho()
	boom := errors.New("mongo down")
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.AuthResult, error) { return nil, boom },
	})
	c, _ := jsonRequest(e, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"x"}`)
	if err := h.Login(c); !errors.Is(err, boom) {
		t.Fatalf("expected store error to reach the error handler, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"success", nil, http.StatusOK, ""},
		{"inactive", domain.ErrInactiveUser, http.StatusUnauthorized, msgInactiveUser},
		{"invalid", domain.ErrInvalidToken, http.StatusUnauthorized, "invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				refreshFn: func(_ context.Context, token string) (*ports.AuthResult, error) {
					if token != "refresh.jwt" {
						t.Fatalf("unexpected token %q", token)
					}
					if tc.err != nil {
						return nil, tc.err
					}
					return &ports.AuthResult{Tokens: domain.TokenPair{AccessToken: "new"}}, nil
				},
			})
			c, rec := jsonRequest(e, http.MethodPost, "/api/refresh", "")
			c.Set(middleware.TokenKey, "refresh.jwt")

			if err := h.Refresh(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if tc.err == nil {
				if strings.Contains(rec.Body.String(), "refresh_token") {
					t.Fatalf("refresh must not return a refresh token: %s", rec.Body.String())
				}
				return
			}
			if msg := decodeMessage(t, rec); msg != tc.message {
				t.Fatalf("unexpected message %q", msg)
			}
		})
	}
}

func TestAuthHandler_Refresh_RequiresToken(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{})
	c, _ := jsonRequest(e, http.MethodPost, "/api/refresh", "")

	err := h.Refresh(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	e := newEcho()
	var got ports.ChangePasswordInput
	h := NewAuthHandler(&stubAuthService{
		changePasswordFn: func(_ context.Context, in ports.ChangePasswordInput) error {
			got = in
			return nil
		},
	})
	c, rec := jsonRequest(e, http.MethodPost, "/api/change-password", `{"current_password":"secret","new_password":"N3w#pass"}`)
	withIdentity(c, "u1")

	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != msgPasswordChanged {
		t.Fatalf("unexpected message %q", msg)
	}
	if got.UserID != "u1" || got.CurrentPassword != "secret" || got.NewPassword != "N3w#pass" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestAuthHandler_ChangePassword_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		svcErr  error
		code    int
		message string
	}{
		{"same password", `{"current_password":"secret","new_password":"secret"}`, nil, http.StatusForbidden, msgSamePassword},
		{"weak password", `{"current_password":"secret","new_password":"short"}`, nil, http.StatusForbidden, ""},
		{"missing fields", `{}`, nil, http.StatusForbidden, ""},
		{"bad json", `{"current_password":`, nil, http.StatusForbidden, msgInvalidPayload},
		{"wrong current", `{"current_password":"guess","new_password":"N3w#pass"}`, domain.ErrIncorrectPassword, http.StatusForbidden, msgWrongPassword},
		{"inactive", `{"current_password":"secret","new_password":"N3w#pass"}`, domain.ErrInactiveUser, http.StatusNotFound, msgNoUser},
		{"vanished", `{"current_password":"secret","new_password":"N3w#pass"}`, domain.ErrUserNotFound, http.StatusNotFound, msgNoUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			called := false
			h := NewAuthHandler(&stubAuthService{
				changePasswordFn: func(context.Context, ports.ChangePasswordInput) error {
					called = true
					return tc.svcErr
				},
			})
			c, rec := jsonRequest(e, http.MethodPost, "/api/change-password", tc.body)
			withIdentity(c, "u1")

			if err := h.ChangePassword(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			msg := decodeMessage(t, rec)
			if tc.message != "" && msg != tc.message {
				t.Fatalf("unexpected message %q", msg)
			}
			if msg == "" {
				t.Fatalf("empty message")
			}
			if tc.svcErr == nil && called {
				t.Fatalf("service called for a request that fails validation")
			}
		})
	}
}
