package errors

import "errors"

var (
	ErrNotFound     = errors.New("reservation not found")
	ErrInvalidID    = errors.New("invalid reservation ID format")
	ErrLockHeld     = errors.New("opening time is locked by another creator")
	ErrStateChanged = errors.New("reservation state changed concurrently")
)
