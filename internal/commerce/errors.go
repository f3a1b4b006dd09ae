package commerce

import "errors"

var (
	// ErrCouponRejected is returned when the pricing service declines a
	// coupon code for the submitted cart total (invalid, expired, or
	// below the coupon's minimum spend).
	ErrCouponRejected = errors.New("coupon rejected")

	// ErrOrderRejected is returned when the commerce API declines an
	// order submission.
	ErrOrderRejected = errors.New("order rejected")
)
