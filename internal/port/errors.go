package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrUserNotFound = errors.New("user not found")
)
