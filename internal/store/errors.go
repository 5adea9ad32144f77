package store

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("schedule source unavailable")
	ErrBadPayload  = errors.New("malformed schedule payload")
)
