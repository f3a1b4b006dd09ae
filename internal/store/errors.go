package store

import "errors"

var (
	// ErrLineNotFound is returned when an operation targets a line ID
	// that is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")

	// ErrEmptyCode is returned when a coupon code is empty after
	// normalization.
	ErrEmptyCode = errors.New("coupon code is empty")

	// ErrEmptyCart is returned when a coupon is applied to a cart with
	// no lines; there is no subtotal to validate against.
	ErrEmptyCart = errors.New("cart is empty")
)
