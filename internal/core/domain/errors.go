package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailTaken        = errors.New("email already registered")
)
