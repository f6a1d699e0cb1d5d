package repository

import (
	"context"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepository stores user records. Emails are compared lower-cased.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Create inserts u and assigns u.ID.
	Create(ctx context.Context, u *model.User) error
	// Save writes the mutable fields of u back to the store.
	Save(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

// TokenRepository persists refresh token records keyed by token hash.
type TokenRepository interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// RevokeByHash marks the token revoked. Unknown or already revoked
	// tokens are not an error.
	RevokeByHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
}
