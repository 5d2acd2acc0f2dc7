// Package cart implements the per-user shopping cart.
//
// Each user owns at most one cart, created on first access and kept (empty)
// after checkout. A line captures the product's unit price when the product
// is first added; later price changes never touch it.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a single cart line may hold.
const MaxQuantity = 1000

var (
	// ErrLineNotFound is returned when a line does not exist or belongs to
	// another user's cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidQuantity is returned when a line would hold fewer than one
	// or more than MaxQuantity units.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")

	// ErrCartNotFound is reported by repositories when a user has no cart yet.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartExists is reported by repositories when a concurrent request
	// already created the user's cart.
	ErrCartExists = errors.New("cart already exists")
)

// Line is a single product entry in a cart. Title, Image and Available are
// read from the catalog for display and are empty when the product has been
// deleted since it was added.
type Line struct {
	ID        uuid.UUID
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal

	Title     string
	Image     string
	Available bool
}

// Subtotal returns UnitPrice × Quantity without rounding.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums line subtotals and rounds half away from zero to 2 places.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// View is the read model returned to the cart owner.
type View struct {
	CartID uuid.UUID
	Lines  []Line
	Total  decimal.Decimal
}

// Repository defines persistence operations for carts and their lines.
// Ownership is enforced by always scoping line operations to a cart ID.
type Repository interface {
	// FindByUser returns the user's cart ID or ErrCartNotFound.
	FindByUser(ctx context.Context, userID string) (uuid.UUID, error)
	// Create inserts a cart. It returns ErrCartExists when the user already
	// has one; uniqueness is enforced by storage.
	Create(ctx context.Context, id uuid.UUID, userID string) error
	// Lines returns the cart's lines in insertion order.
	Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error)
	// AddLine inserts the line or, when the cart already holds the product,
	// atomically adds its quantity to the existing line. The stored line is
	// returned; a merged line keeps its original ID and unit price. A merge
	// that would exceed MaxQuantity fails with ErrInvalidQuantity and leaves
	// the line unchanged.
	AddLine(ctx context.Context, cartID uuid.UUID, line Line) (*Line, error)
	// SetQuantity updates a line's quantity, reporting whether it exists.
	SetQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) (bool, error)
	// RemoveLine deletes a line, reporting whether it existed.
	RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error)
	// Clear deletes every line of the cart.
	Clear(ctx context.Context, cartID uuid.UUID) error
}
