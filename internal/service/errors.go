package service

import "errors"

// ErrInvalidInput marks caller mistakes that the HTTP layer maps to 400.
var ErrInvalidInput = errors.New("invalid input")
