package common

import "errors"

var (
	// ErrInvalidQuantity is returned when a quantity is zero.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPrice is returned when a price is non-positive.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrDuplicateOrder is returned when an order id is already resident.
	ErrDuplicateOrder = errors.New("order id already resident")
)
