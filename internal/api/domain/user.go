package domain

import "errors"

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)
