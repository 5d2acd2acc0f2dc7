package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
)

// ProductReader is the catalog capability the cart needs.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// QuantityUpdate reports the outcome of SetQuantity.
type QuantityUpdate struct {
	Quantity int
	Deleted  bool
}

// Service encapsulates cart business logic.
type Service struct {
	carts    Repository
	products ProductReader
}

// NewService creates a cart Service.
func NewService(carts Repository, products ProductReader) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// GetOrCreate returns the user's cart ID, creating the cart on first use.
// A concurrent creation surfaces as ErrCartExists from storage and is
// resolved by reading the winner's cart.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (uuid.UUID, error) {
	id, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return uuid.Nil, errors.Wrap(err, "find cart")
	}

	id = uuid.New()
	err = s.carts.Create(ctx, id, userID)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, ErrCartExists):
		id, err = s.carts.FindByUser(ctx, userID)
		if err != nil {
			return uuid.Nil, errors.Wrap(err, "refetch cart")
		}
		return id, nil
	default:
		return uuid.Nil, errors.Wrap(err, "create cart")
	}
}

// AddItem adds quantity units of a product to the user's cart. The product
// must exist and be available. Repeated adds merge into one line whose unit
// price stays the one captured by the first add. No line may exceed
// MaxQuantity units.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Line, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get product")
	}
	if !p.Available {
		return nil, errors.Wrapf(catalog.ErrProductNotFound, "product %s is unavailable", productID)
	}

	cartID, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, err := s.carts.AddLine(ctx, cartID, Line{
		ID:        uuid.New(),
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
		Title:     p.Title,
		Image:     p.Image,
		Available: p.Available,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidQuantity) {
			return nil, err
		}
		return nil, errors.Wrap(err, "add line")
	}
	return line, nil
}

// SetQuantity sets a line's quantity. A quantity of zero or less removes the
// line. The unit price is never touched.
func (s *Service) SetQuantity(ctx context.Context, userID string, lineID uuid.UUID, quantity int) (*QuantityUpdate, error) {
	if quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	cartID, err := s.ownCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.remove(ctx, cartID, lineID); err != nil {
			return nil, err
		}
		return &QuantityUpdate{Deleted: true}, nil
	}

	found, err := s.carts.SetQuantity(ctx, cartID, lineID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "set quantity")
	}
	if !found {
		return nil, ErrLineNotFound
	}
	return &QuantityUpdate{Quantity: quantity}, nil
}

// RemoveItem deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID string, lineID uuid.UUID) error {
	cartID, err := s.ownCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.remove(ctx, cartID, lineID)
}

// Clear empties the user's cart. Clearing an empty or missing cart succeeds.
func (s *Service) Clear(ctx context.Context, userID string) error {
	cartID, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil
		}
		return errors.Wrap(err, "find cart")
	}
	if err := s.carts.Clear(ctx, cartID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// View returns the user's cart lines and their total.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	cartID, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Lines(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list lines")
	}

	return &View{
		CartID: cartID,
		Lines:  lines,
		Total:  Total(lines),
	}, nil
}

// ownCart resolves the user's cart for line operations. A user without a
// cart cannot own any line.
func (s *Service) ownCart(ctx context.Context, userID string) (uuid.UUID, error) {
	cartID, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return uuid.Nil, ErrLineNotFound
		}
		return uuid.Nil, errors.Wrap(err, "find cart")
	}
	return cartID, nil
}

func (s *Service) remove(ctx context.Context, cartID, lineID uuid.UUID) error {
	found, err := s.carts.RemoveLine(ctx, cartID, lineID)
	if err != nil {
		return errors.Wrap(err, "remove line")
	}
	if !found {
		return ErrLineNotFound
	}
	return nil
}
