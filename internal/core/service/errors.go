package service

import "errors"

var (
	ErrLoginRequired         = errors.New("login required")
	ErrForbidden             = errors.New("admin access required")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrIncompleteOrder       = errors.New("order created without items")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrProofRequired         = errors.New("proof of payment is required")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrQueueClosed           = errors.New("notification queue closed")
	ErrInvalidFilter         = errors.New("invalid export filter")
	ErrInvalidPrice          = errors.New("price must not be negative")
)
