package domain

import "errors"

// Credential store errors.
var (
	ErrConflict           = errors.New("email or username already in use")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfAction         = errors.New("cannot perform this action on your own account")
	ErrInvalidInput       = errors.New("invalid input")
)

// Token errors. A token failing any check is rejected as a whole.
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
	ErrMissingSecret    = errors.New("token signing secret is not configured")
)

var ErrForbidden = errors.New("access forbidden")
var ErrTooManyAttempts = errors.New("too many failed login attempts")

// IsTokenError reports whether err is one of the bearer token failures.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMalformedToken)
}
