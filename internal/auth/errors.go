package auth

import (
	"errors"

	"github.com/nkoval/backoffice/internal/users"
)

// Service errors.
//
// Ticket-stage failures are distinguishable from credential-stage failures;
// within the credential stage a bad email and a bad password are deliberately
// indistinguishable.
var (
	ErrInvalidSession      = errors.New("invalid or expired session")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMalformedAuthHeader = errors.New("invalid authorization header")
	ErrInvalidToken        = errors.New("invalid or expired token")

	// Storage sentinels shared with the users feature, so a single
	// repository serves both.
	ErrEmailExists  = users.ErrEmailExists
	ErrUserNotFound = users.ErrUserNotFound
)
