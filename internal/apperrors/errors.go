package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")

	// Login collapses unknown user and wrong password into this one
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	ErrUserBanned         = errors.New("account is banned")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")
	ErrAccessTokenInvalid   = errors.New("access token is invalid")

	ErrBookNotFound   = errors.New("book not found")
	ErrReviewNotFound = errors.New("review not found")

	ErrInvalidRole = errors.New("invalid role")
)
