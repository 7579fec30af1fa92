package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/pkg/database"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, nickname, roles, oauth_provider, profile_image, two_factor_secret, is_active, created_at, updated_at`

// Create inserts a new user and populates the generated ID.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, nickname, roles, oauth_provider, profile_image, two_factor_secret, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		u.Email,
		u.PasswordHash,
		u.Nickname,
		u.Roles,
		u.OAuthProvider,
		u.ProfileImage,
		u.TwoFactorSecret,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("email %s is already registered", u.Email))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	return r.scanUser(ctx, query, email)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $1, password_hash = $2, nickname = $3, roles = $4, oauth_provider = $5,
		    profile_image = $6, two_factor_secret = $7, is_active = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.db.Exec(ctx, query,
		u.Email,
		u.PasswordHash,
		u.Nickname,
		u.Roles,
		u.OAuthProvider,
		u.ProfileImage,
		u.TwoFactorSecret,
		u.IsActive,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("email %s is already registered", u.Email))
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", u.ID))
	}

	return nil
}

// SetPasswordHash replaces the stored password hash for the given user.
func (r *UserRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}

	return nil
}

// SetTwoFactorSecret stores the TOTP secret for the given user. An empty
// secret disables two-factor.
func (r *UserRepository) SetTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	query := `UPDATE users SET two_factor_secret = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, secret, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set two factor secret: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}

	return nil
}

// Deactivate marks the user as inactive. Deactivated accounts fail sign-in
// but their rows are kept.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_active = false, updated_at = $1 WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Nickname,
		&u.Roles,
		&u.OAuthProvider,
		&u.ProfileImage,
		&u.TwoFactorSecret,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
