package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a product does not exist or, for
	// cart operations, is not currently available.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists is returned when creating a product with a taken ID.
	ErrProductExists = errors.New("product already exists")
	// ErrInvalidProduct wraps product validation failures.
	ErrInvalidProduct = errors.New("invalid product")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInvalidCategory  = errors.New("invalid category")
	// ErrCategoryInUse is returned when deleting a category that products
	// still reference by name.
	ErrCategoryInUse = errors.New("category is in use")
)

// MaxPrice is the largest price a product may carry, the limit of a
// NUMERIC(10,2) column.
var MaxPrice = decimal.RequireFromString("99999999.99")

// Product represents a menu item.
type Product struct {
	ID        string
	Title     string
	Category  string
	Price     decimal.Decimal
	Available bool
	Image     string
}

// Category groups products by name. Deleted categories stay in storage with
// Active set to false.
type Category struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// ProductFilter narrows product listings. Zero value lists everything.
type ProductFilter struct {
	Category      string
	AvailableOnly bool
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	// Create and Update fail with ErrCategoryNotFound unless the product's
	// category is active when the write commits.
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Upsert(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, activeOnly bool) ([]Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	// Create inserts a category or reactivates a soft-deleted one with the
	// same name. It returns ErrCategoryExists for an active duplicate.
	Create(ctx context.Context, c *Category) error
	// Deactivate soft-deletes a category. The reference check and the flag
	// flip happen atomically.
	Deactivate(ctx context.Context, id uuid.UUID) error
}
