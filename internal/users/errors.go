package users

import "errors"

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
	ErrEmailExists  = errors.New("user with this email already exists")
)
