package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/megharaj2002/canteen/internal/domain/cart"
)

// Order is an immutable snapshot of a checked-out cart. Only Status and
// UpdatedAt change after creation.
type Order struct {
	ID uuid.UUID
	// UserID is empty when the customer account has been deleted.
	UserID    string
	Total     decimal.Decimal
	Status    Status
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time

	// Customer is filled by admin listings only.
	Customer *Customer
}

// Line is a single item of an order. ProductID is a plain reference that
// survives product deletion; Title is copied at checkout.
type Line struct {
	ID        uuid.UUID
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Customer identifies who placed an order.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// CheckoutTx is the set of storage operations checkout performs inside a
// single transaction. Implementations must roll back every change when the
// callback passed to Repository.InCheckoutTx returns an error.
type CheckoutTx interface {
	// LockCart returns the user's cart ID and holds it exclusively until the
	// transaction ends. It returns cart.ErrCartNotFound when the user has
	// never created a cart.
	LockCart(ctx context.Context, userID string) (uuid.UUID, error)
	// CartLines reads the locked cart's lines.
	CartLines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error)
	// InsertOrder stores the order together with its lines.
	InsertOrder(ctx context.Context, o *Order) error
	// ClearCart removes every line of the cart, keeping the cart itself.
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

// Repository defines persistence operations for orders.
type Repository interface {
	InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error
	// Get returns an order with its lines or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll returns every order with customer details, newest first.
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus locks the order, calls check with the stored status and,
	// when check succeeds, writes next and at. It returns the previous status
	// or ErrNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, next Status, at time.Time, check func(current Status) error) (Status, error)
}
