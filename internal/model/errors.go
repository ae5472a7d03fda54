package model

import "errors"

var (
	// Staff account errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Session errors
	ErrUnauthorized = errors.New("unauthorized")

	// Configuration errors
	ErrMissingSecret = errors.New("signing secret missing")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
