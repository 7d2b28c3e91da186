package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fawasanayat/authgate/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// RefreshToken repository interface
// Records hold token hashes only, so lookups go by token id (jti),
// never by the token string
type RefreshTokenRepo interface {
	// Save ledger record for an issued token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the record even if it is expired or used already
	// If no record exists must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenID uuid.UUID) (models.RefreshToken, error)

	// Mark token as used
	// If the token is already used, must not overwrite the existing
	// 'usedAt' and must return apperrors.ErrRefreshTokenIsUsed
	MarkUsed(ctx context.Context, tokenID uuid.UUID) (usedAt time.Time, err error)

	// Delete records that expired before the given moment
	// Returns the number of deleted records
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Storage bundles repositories working over the same connection pool
// and lets callers run several of them in one transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// Run fn with a Storage bound to a single transaction.
	// Commits when fn returns nil, rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}
