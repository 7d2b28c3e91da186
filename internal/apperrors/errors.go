package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Returned on login when the user does not exist or the password does
	// not match. Callers must not be able to tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid")

	ErrAccessTokenInvalid = errors.New("access token is invalid")
)
