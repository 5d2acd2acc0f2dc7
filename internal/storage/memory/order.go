package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on a Store.
type OrderRepository struct {
	s *Store
}

// InCheckoutTx holds the store lock for the whole callback. Writes are
// staged on the transaction and applied only when fn succeeds and ctx is
// still live. fn must use tx exclusively; calling other repositories of the
// same Store from it deadlocks.
func (r *OrderRepository) InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx order.CheckoutTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &checkoutTx{s: r.s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, o := range tx.orders {
		r.s.orders[o.ID] = o
	}
	for _, id := range tx.cleared {
		delete(r.s.cartLines, id)
	}
	return nil
}

type checkoutTx struct {
	s       *Store
	orders  []order.Order
	cleared []uuid.UUID
}

var _ order.CheckoutTx = (*checkoutTx)(nil)

func (tx *checkoutTx) LockCart(ctx context.Context, userID string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	id, ok := tx.s.carts[userID]
	if !ok {
		return uuid.Nil, cart.ErrCartNotFound
	}
	return id, nil
}

func (tx *checkoutTx) CartLines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.s.cartView(cartID), nil
}

func (tx *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.s.orders[o.ID]; ok {
		return errors.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	cp.Lines = slices.Clone(o.Lines)
	tx.orders = append(tx.orders, cp)
	return nil
}

func (tx *checkoutTx) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.cleared = append(tx.cleared, cartID)
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listOrders(func(o order.Order) bool { return o.UserID == userID }, false), nil
}

func (r *OrderRepository) ListAll(_ context.Context) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listOrders(func(order.Order) bool { return true }, true), nil
}

func (r *OrderRepository) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	next order.Status,
	at time.Time,
	check func(current order.Status) error,
) (order.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return "", order.ErrNotFound
	}
	prev := o.Status
	if err := check(prev); err != nil {
		return "", err
	}
	o.Status = next
	o.UpdatedAt = at
	r.s.orders[id] = o
	return prev, nil
}

// listOrders returns matching orders newest first. The caller holds the
// lock.
func (s *Store) listOrders(match func(order.Order) bool, withCustomer bool) []order.Order {
	var out []order.Order
	for _, o := range s.orders {
		if !match(o) {
			continue
		}
		o.Lines = slices.Clone(o.Lines)
		if withCustomer {
			if u, ok := s.users[o.UserID]; ok {
				o.Customer = &order.Customer{ID: u.ID, Name: u.Name, Email: u.Email}
			}
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		return cmp.Or(
			b.CreatedAt.Compare(a.CreatedAt),
			cmp.Compare(a.ID.String(), b.ID.String()),
		)
	})
	return out
}
