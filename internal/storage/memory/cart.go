package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/megharaj2002/canteen/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on a Store.
type CartRepository struct {
	s *Store
}

func (r *CartRepository) FindByUser(_ context.Context, userID string) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.carts[userID]
	if !ok {
		return uuid.Nil, cart.ErrCartNotFound
	}
	return id, nil
}

func (r *CartRepository) Create(_ context.Context, id uuid.UUID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[userID]; ok {
		return cart.ErrCartExists
	}
	r.s.carts[userID] = id
	return nil
}

func (r *CartRepository) Lines(_ context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.cartView(cartID), nil
}

func (r *CartRepository) AddLine(_ context.Context, cartID uuid.UUID, line cart.Line) (*cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if line.Quantity > cart.MaxQuantity {
		return nil, cart.ErrInvalidQuantity
	}
	lines := r.s.cartLines[cartID]
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			if lines[i].Quantity > cart.MaxQuantity-line.Quantity {
				return nil, cart.ErrInvalidQuantity
			}
			lines[i].Quantity += line.Quantity
			line.ID = lines[i].ID
			line.Quantity = lines[i].Quantity
			line.UnitPrice = lines[i].UnitPrice
			return &line, nil
		}
	}
	r.s.cartLines[cartID] = append(lines, storedLine{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
	})
	return &line, nil
}

func (r *CartRepository) SetQuantity(_ context.Context, cartID, lineID uuid.UUID, quantity int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cartLines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = quantity
			return true, nil
		}
	}
	return false, nil
}

func (r *CartRepository) RemoveLine(_ context.Context, cartID, lineID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cartLines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			r.s.cartLines[cartID] = append(lines[:i:i], lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *CartRepository) Clear(_ context.Context, cartID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cartLines, cartID)
	return nil
}

// cartView joins stored lines with current product details. The caller
// holds the lock.
func (s *Store) cartView(cartID uuid.UUID) []cart.Line {
	stored := s.cartLines[cartID]
	out := make([]cart.Line, len(stored))
	for i, l := range stored {
		p := s.products[l.ProductID]
		out[i] = cart.Line{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Title:     p.Title,
			Image:     p.Image,
			Available: p.Available,
		}
	}
	return out
}
