package errors

import "errors"

var (
	ErrNotFound = errors.New("opening time not found")

	ErrInvalidID = errors.New("invalid opening time ID format")
)
