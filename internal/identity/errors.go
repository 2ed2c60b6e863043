package identity

import "errors"

var (
	ErrNotFound         = errors.New("identity: not found")
	ErrAlreadyExists    = errors.New("identity: already exists")
	ErrAlreadyOnboarded = errors.New("identity: onboarding already completed")
	ErrInvalidInput     = errors.New("identity: invalid input")
)
