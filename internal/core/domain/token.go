package domain

import "time"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenPair is returned on login. RefreshToken is empty on refresh, which
// only mints a new access token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Identity is what a verified token proves about its bearer.
type Identity struct {
	UserID   string
	Type     TokenType
	Profile  Profile
	IssuedAt time.Time
	Expires  time.Time
}
