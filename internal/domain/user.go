package domain

import (
	"slices"
	"time"
)

// Role values assignable to a user. Every account carries at least RoleUser.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered account.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Nickname        string    `json:"nickname"`
	Roles           []string  `json:"roles"`
	OAuthProvider   string    `json:"oauth_provider,omitempty"`
	ProfileImage    string    `json:"profile_image,omitempty"`
	TwoFactorSecret string    `json:"-"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// TwoFactorEnabled reports whether a TOTP secret has been provisioned.
func (u *User) TwoFactorEnabled() bool {
	return u.TwoFactorSecret != ""
}

// IsOAuth reports whether the account was created through an identity
// provider. OAuth accounts have no password hash and cannot sign in with a
// password.
func (u *User) IsOAuth() bool {
	return u.OAuthProvider != ""
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
