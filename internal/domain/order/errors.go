package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNotFound            = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProductUnavailable  = errors.New("product is no longer available")
	ErrOrderCreationFailed = errors.New("order creation failed")
)

// CreationError reports a checkout that failed after validation. The
// transaction has been rolled back and the cart is unchanged.
type CreationError struct {
	UserID string
	Err    error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create order for user %s: %v", e.UserID, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOrderCreationFailed) match any CreationError.
func (e *CreationError) Is(target error) bool {
	return target == ErrOrderCreationFailed
}

// TransitionError reports a status change outside the intended lifecycle.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// UnavailableError names the product that blocked a checkout.
type UnavailableError struct {
	ProductID string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.ProductID)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrProductUnavailable
}
