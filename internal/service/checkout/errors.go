package checkout

import "errors"

// ErrInvalidPrice rejects carts holding a line without a positive price.
var ErrInvalidPrice = errors.New("invalid item price")
