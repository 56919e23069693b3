package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

type Repository interface {
	// CreateUser and CreateProvider return ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, u *User) (*User, error)
	CreateProvider(ctx context.Context, p *Provider) error

	GetUserByEmail(ctx context.Context, email string) (*User, error)
	IsProvider(ctx context.Context, id uuid.UUID) (bool, error)
}
