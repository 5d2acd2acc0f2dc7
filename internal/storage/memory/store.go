// Package memory implements the domain repositories in process memory.
//
// All state lives in one Store guarded by a single mutex. It backs tests and
// the memory storage mode of the API server; nothing survives a restart.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/domain/order"
)

type storedLine struct {
	ID        uuid.UUID
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Store holds every table of the service.
type Store struct {
	mu sync.Mutex

	users      map[string]auth.User
	products   map[string]catalog.Product
	categories map[uuid.UUID]catalog.Category
	carts      map[string]uuid.UUID
	cartLines  map[uuid.UUID][]storedLine
	orders     map[uuid.UUID]order.Order
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:      make(map[string]auth.User),
		products:   make(map[string]catalog.Product),
		categories: make(map[uuid.UUID]catalog.Category),
		carts:      make(map[string]uuid.UUID),
		cartLines:  make(map[uuid.UUID][]storedLine),
		orders:     make(map[uuid.UUID]order.Order),
	}
}

// Products returns the product repository view of the store.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Categories returns the category repository view of the store.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// Carts returns the cart repository view of the store.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// Orders returns the order repository view of the store.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
