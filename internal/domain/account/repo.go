package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByEmail returns nil, nil when no account has the email.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
