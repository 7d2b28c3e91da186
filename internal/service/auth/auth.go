package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fawasanayat/authgate/internal/apperrors"
	"github.com/fawasanayat/authgate/internal/models"
	"github.com/fawasanayat/authgate/internal/repository"
	"github.com/fawasanayat/authgate/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Manager to issue, rotate and validate token pairs
type TokenManager interface {
	GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error)
	UseRefresh(ctx context.Context, refresh string) (models.RefreshToken, error)
	ParseAccess(ctx context.Context, access string) (tokenmanager.AccessTokenClaims, error)
}

type Config struct {
	// Hasher to use during user registration or login
	// Bcrypt based hasher is used if not set
	Hasher PasswordHasher

	// Header and scheme the access token is expected in
	// Defaults: "Authorization" / "Bearer"
	AccessHeaderName string
	AccessAuthScheme string
}

// Auth service
type AuthService struct {
	// Manager to issue token pairs (access and refresh)
	token TokenManager

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	// Storage with the user credential store
	storage repository.Storage

	accessHeaderName string
	accessAuthScheme string

	// Valid hash compared against when the user does not exist, so a
	// login with unknown username costs the same as a wrong password
	decoyHash string
}

func NewService(cfg Config, tokenManager TokenManager, storage repository.Storage) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	decoyHash, err := hasher.Hash("authgate-decoy-password")
	if err != nil {
		return nil, fmt.Errorf("error while preparing decoy hash. Err: %w", err)
	}

	return &AuthService{
		token:            tokenManager,
		hasher:           hasher,
		storage:          storage,
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		decoyHash:        decoyHash,
	}, nil
}

// Register creates the user with a hashed password
// Tokens are not issued here: the user logs in with the password next
func (s *AuthService) Register(ctx context.Context, username string, email string, password string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, username, email, hash)
	if err != nil {
		return user, err
	}

	return user, nil
}

// Login checks the password and issues a fresh token pair.
// Unknown username and wrong password both return ErrInvalidCredentials
// and burn one hash comparison each.
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.storage.User().GetUserByUsername(ctx, username)
	if err != nil {
		_ = s.hasher.Compare(s.decoyHash, password)
		return pair, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// RefreshPair redeems a valid refresh token for a new token pair
// The used token is consumed and can not be redeemed again
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	token, err := s.token.UseRefresh(ctx, refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.storage.User().GetUserByID(ctx, token.UserID)
	if err != nil {
		// Owner gone (deleted account): the token is no longer redeemable
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return pair, fmt.Errorf("token owner missing: %w", apperrors.ErrRefreshTokenNotFound)
		}
		return pair, fmt.Errorf("error while resolving token owner. Err: %w", err)
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// Auth resolves the caller of the request from its bearer access token.
// The user is looked up fresh on every call, nothing is cached.
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access, err := s.GetAccessString(r)
	if err != nil {
		return user, err
	}

	claims, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return user, err
	}

	user, err = s.storage.User().GetUserByID(ctx, claims.UserID)
	if err != nil {
		return user, err
	}

	return user, nil
}

// GetAccessString extracts the bearer token from the request header
func (s *AuthService) GetAccessString(r *http.Request) (string, error) {
	header := r.Header.Get(s.accessHeaderName)

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || token == "" || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return "", apperrors.ErrAccessTokenInvalid
	}

	return token, nil
}
