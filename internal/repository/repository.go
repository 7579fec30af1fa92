package repository

import (
	"context"

	"github.com/GwangCheonLee/authcore/internal/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SetTwoFactorSecret(ctx context.Context, id int64, secret string) error
	Deactivate(ctx context.Context, id int64) error
}
