package errors

import "errors"

var (
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrAuthorityNotFound   = errors.New("authority not found")
	ErrInvalidID           = errors.New("invalid ID format")
	ErrDuplicateSlug       = errors.New("institution slug already exists")
)
