package auth

import "errors"

var (
	ErrCredentialsRequired = errors.New("Email and password are required")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNotAuthenticated   = errors.New("Not authenticated")
)
