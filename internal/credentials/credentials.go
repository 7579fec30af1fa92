package credentials

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// DefaultCost is the bcrypt cost factor used in production. Tests pass a
// lower cost to keep hashing fast.
const DefaultCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a password hasher. A non-positive cost falls back to
// DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the given password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks the password against the stored hash. An empty hash (OAuth
// account) and a mismatch both return the same generic Unauthorized, so the
// response never reveals whether the account exists or how it was created.
func (h *Hasher) Verify(hash, password string) error {
	if hash == "" {
		return apperrors.Unauthorized()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperrors.Unauthorized()
	}
	return nil
}

// ValidatePassword checks that the password meets minimum complexity requirements.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
