package checkout

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrNothingStaged   = errors.New("no checkout is staged")
	ErrNoOrder         = errors.New("no placed order awaiting confirmation")
	ErrMissingDelivery = errors.New("delivery address and phone are required")
	ErrCorruptPayload  = errors.New("staged checkout is incomplete or malformed")
)
