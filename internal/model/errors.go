package model

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionEnded     = errors.New("session has ended, reset required")
	ErrListingNotFound  = errors.New("listing not found")
	ErrMalformedProfile = errors.New("malformed profile extraction")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrAIDisabled       = errors.New("language model is not enabled (missing API key)")
	ErrExternalService  = errors.New("external service failure")
)
