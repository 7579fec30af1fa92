package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GwangCheonLee/authcore/internal/domain"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// issuerName is the iss claim stamped on every token.
const issuerName = "authcore"

// Type distinguishes the two token families. Access and refresh tokens are
// signed with independent secrets, so one can never verify as the other.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// UserPayload is the user snapshot embedded in every token.
type UserPayload struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// Claims is the JWT claim set for both token types. Roles are deliberately
// not embedded: guards load the account on each request, so role changes
// take effect without reissuing tokens.
type Claims struct {
	User UserPayload `json:"user"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access and refresh tokens with independent
// secrets and lifetimes.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer creates a token issuer from the two signing secrets and their TTLs.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// TTL returns the lifetime for the given token type.
func (i *Issuer) TTL(typ Type) time.Duration {
	if typ == TypeRefresh {
		return i.refreshTTL
	}
	return i.accessTTL
}

// IssueAccess creates a signed access token for the given user.
func (i *Issuer) IssueAccess(u *domain.User) (string, error) {
	return i.issue(u, i.accessSecret, i.accessTTL)
}

// IssueRefresh creates a signed refresh token for the given user.
func (i *Issuer) IssueRefresh(u *domain.User) (string, error) {
	return i.issue(u, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) issue(u *domain.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		User: UserPayload{
			ID:       u.ID,
			Nickname: u.Nickname,
			Email:    u.Email,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    issuerName,
			Audience:  jwt.ClaimStrings{u.Email},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccess parses and validates an access token, returning the claims.
// Expired tokens yield TokenExpired; anything else invalid yields TokenInvalid.
func (i *Issuer) VerifyAccess(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.accessSecret)
}

// VerifyRefresh parses and validates a refresh token, returning the claims.
func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.refreshSecret)
}

func (i *Issuer) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuerName))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.TokenInvalid()
	}

	return claims, nil
}
