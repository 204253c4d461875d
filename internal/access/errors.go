package access

import "errors"

var (
	ErrInvalidInput = errors.New("access: invalid input")
	ErrNotFound     = errors.New("access: user not found")
	ErrConflict     = errors.New("access: user already exists")
	ErrUnauthorized = errors.New("access: invalid username or password")
	ErrForbidden    = errors.New("access: section not permitted")
	ErrLastAdmin    = errors.New("access: cannot delete the last admin")
	ErrInvalidToken = errors.New("access: invalid session token")
	ErrNoSession    = errors.New("access: not logged in")
)
