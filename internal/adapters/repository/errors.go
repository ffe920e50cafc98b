package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid store input")
	ErrUnknownDriver = errors.New("unknown store driver")
)
