package domain

import (
	"errors"
)

var ErrUserNotExist = errors.New("user does not exist")

var ErrUserExists = errors.New("user with this email already exists")

var ErrInvalidCredentials = errors.New("wrong email or password")

var ErrWeakPassword = errors.New("password must be at least 8 characters")

var ErrInvalidInput = errors.New("invalid input")

var ErrForbidden = errors.New("not allowed to modify this resource")

var ErrPostNotFound = errors.New("post not found")

var ErrProductNotFound = errors.New("product not found")

var ErrTokenInvalid = errors.New("token is invalid or expired")

var ErrTokenReused = errors.New("refresh token has already been used")

var ErrResetTokenInvalid = errors.New("password reset token is invalid or has expired")
