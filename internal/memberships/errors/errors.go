package errors

import "errors"

var (
	ErrRoleNotFound = errors.New("role not found")

	ErrMembershipNotFound = errors.New("membership not found")

	ErrInvalidID = errors.New("invalid membership ID format")
)
