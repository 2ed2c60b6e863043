package auth

import "errors"

var (
	// ErrInvalidToken indicates the token failed decoding or validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUnauthorized indicates a valid-looking token with no matching principal.
	ErrUnauthorized = errors.New("auth: unauthorized")
)
