package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fawasanayat/authgate/internal/apperrors"
	"github.com/fawasanayat/authgate/internal/models"
	"github.com/fawasanayat/authgate/internal/repository"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"
)

// Kind claim value that marks a token as a refresh token
const RefreshTokenKind = "refresh"

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"uid"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type RefreshTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
	Kind   string    `json:"kind"`
}

// Hasher to persist refresh tokens as one-way hashes
// Must salt, so the same token hashed twice gives different values
type Hasher interface {
	Hash(token string) (string, error)

	// Compare known hash and user provided token
	// Must be protected against timing attacks
	Compare(hashedToken string, token string) error
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign token payloads
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Hasher for ledger records
	// If not set than bcrypt based hasher is used
	Hasher Hasher
}

type TokenManager struct {
	// Secret key to sign tokens
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Hasher for refresh token ledger records
	hasher Hasher

	// Storage with the refresh token ledger
	storage repository.Storage
}

func New(cfg Config, storage repository.Storage) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method: %q", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = bcryptHasher{}
	}

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		hasher:     hasher,
		storage:    storage,
	}, nil
}

// GeneratePair issues signed access and refresh tokens for the user and
// records a hash of the refresh token in the ledger
func (m *TokenManager) GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	// Generate JWT access token encoded as string
	accessToken := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
			},
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	)
	access, err := accessToken.SignedString([]byte(m.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	// Generate JWT refresh token with its own unique id (jti)
	refreshToken := jwt.NewWithClaims(
		m.alg,
		RefreshTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
			},
			UserID: user.ID,
			Kind:   RefreshTokenKind,
		},
	)
	refresh, err := refreshToken.SignedString([]byte(m.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	err = m.saveRefresh(ctx, refresh)
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// saveRefresh records a ledger entry for a token this manager just signed.
// The claims are recovered from the token itself instead of reading the
// clock again: failing to decode our own token is an invariant violation.
func (m *TokenManager) saveRefresh(ctx context.Context, refresh string) error {
	claims, err := m.parseRefresh(refresh)
	if err != nil {
		return fmt.Errorf("just issued token does not decode: %w", err)
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return fmt.Errorf("just issued token has bad jti: %w", err)
	}

	hash, err := m.hasher.Hash(refresh)
	if err != nil {
		return fmt.Errorf("error while hashing refresh token. Err: %w", err)
	}

	return m.storage.Refresh().Save(ctx, models.RefreshToken{
		ID:        tokenID,
		UserID:    claims.UserID,
		TokenHash: hash,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		UsedAt:    nil,
	})
}

// UseRefresh validates the refresh token, checks it against the ledger and
// marks it used. Lookup, hash compare and mark run in one transaction.
func (m *TokenManager) UseRefresh(ctx context.Context, refresh string) (models.RefreshToken, error) {
	var token models.RefreshToken

	claims, err := m.parseRefresh(refresh)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return token, fmt.Errorf("parse error: %w", apperrors.ErrRefreshTokenExpired)
	default:
		return token, fmt.Errorf("parse error: %w", apperrors.ErrRefreshTokenInvalid)
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return token, fmt.Errorf("bad jti: %w", apperrors.ErrRefreshTokenInvalid)
	}

	err = m.storage.InTx(ctx, func(s repository.Storage) error {
		token, err = s.Refresh().Get(ctx, tokenID)
		if err != nil {
			return err
		}

		// The ledger holds hashes only, so presenting a token whose hash
		// does not match the stored one is the same as having no record
		if err := m.hasher.Compare(token.TokenHash, refresh); err != nil {
			return fmt.Errorf("hash mismatch: %w", apperrors.ErrRefreshTokenNotFound)
		}

		if token.ExpiresAt.Before(time.Now()) {
			return fmt.Errorf("ledger record expired: %w", apperrors.ErrRefreshTokenExpired)
		}

		_, err = s.Refresh().MarkUsed(ctx, tokenID)
		return err
	})
	if err != nil {
		return token, fmt.Errorf("error while using refresh token. Err: %w", err)
	}

	return token, nil
}

// Parse and validate access token
func (m *TokenManager) ParseAccess(ctx context.Context, access string) (AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return AccessTokenClaims{}, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}

	return *claims, nil
}

// parseRefresh validates signature and expiry and checks the kind claim,
// so an access token can not be redeemed as a refresh one
func (m *TokenManager) parseRefresh(refresh string) (RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}

	_, err := jwt.ParseWithClaims(
		refresh,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return RefreshTokenClaims{}, err
	}

	if claims.Kind != RefreshTokenKind {
		return RefreshTokenClaims{}, fmt.Errorf("token kind is %q, not %q", claims.Kind, RefreshTokenKind)
	}

	return *claims, nil
}
