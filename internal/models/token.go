package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the ledger record of an issued refresh token.
// TokenHash holds a salted one-way hash of the raw token string, the raw
// value itself is never persisted.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time // nil if token not used
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager on login or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
