package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megharaj2002/canteen/internal/domain/cart"
)

// --- Mock implementations ---

// mockRepo stages checkout writes and applies them only when the callback
// succeeds, like a real transaction.
type mockRepo struct {
	carts  map[string]uuid.UUID
	lines  map[uuid.UUID][]cart.Line
	orders map[uuid.UUID]*Order

	linesErr  error
	insertErr error
	clearErr  error
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		carts:  make(map[string]uuid.UUID),
		lines:  make(map[uuid.UUID][]cart.Line),
		orders: make(map[uuid.UUID]*Order),
	}
}

type mockTx struct {
	repo    *mockRepo
	order   *Order
	cleared []uuid.UUID
}

func (tx *mockTx) LockCart(_ context.Context, userID string) (uuid.UUID, error) {
	id, ok := tx.repo.carts[userID]
	if !ok {
		return uuid.Nil, cart.ErrCartNotFound
	}
	return id, nil
}

func (tx *mockTx) CartLines(_ context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	if tx.repo.linesErr != nil {
		return nil, tx.repo.linesErr
	}
	return tx.repo.lines[cartID], nil
}

func (tx *mockTx) InsertOrder(_ context.Context, o *Order) error {
	if tx.repo.insertErr != nil {
		return tx.repo.insertErr
	}
	tx.order = o
	return nil
}

func (tx *mockTx) ClearCart(_ context.Context, cartID uuid.UUID) error {
	if tx.repo.clearErr != nil {
		return tx.repo.clearErr
	}
	tx.cleared = append(tx.cleared, cartID)
	return nil
}

func (m *mockRepo) InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error {
	tx := &mockTx{repo: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if tx.order != nil {
		m.orders[tx.order.ID] = tx.order
	}
	for _, id := range tx.cleared {
		delete(m.lines, id)
	}
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, next Status, at time.Time, check func(Status) error) (Status, error) {
	if m.updateErr != nil {
		return "", m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return "", ErrNotFound
	}
	prev := o.Status
	if err := check(prev); err != nil {
		return "", err
	}
	o.Status = next
	o.UpdatedAt = at
	return prev, nil
}

// --- Helpers ---

var fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func (m *mockRepo) addCart(userID string, lines ...cart.Line) uuid.UUID {
	id := uuid.New()
	m.carts[userID] = id
	m.lines[id] = lines
	return id
}

func line(productID, title, price string, qty int) cart.Line {
	return cart.Line{
		ID:        uuid.New(),
		ProductID: productID,
		Title:     title,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Available: true,
	}
}

func newService(repo *mockRepo, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(repo, opts...)
}

// --- Tests ---

func TestCheckout(t *testing.T) {
	repo := newMockRepo()
	cartID := repo.addCart("u1",
		line("1", "Masala Dosa", "45.00", 2),
		line("3", "Veg Thali", "80.00", 1),
	)
	svc := newService(repo)

	o, err := svc.Checkout(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "170.00", o.Total.StringFixed(2))
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, fixedNow, o.UpdatedAt)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "Masala Dosa", o.Lines[0].Title)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, "45.00", o.Lines[0].UnitPrice.StringFixed(2))

	assert.Empty(t, repo.lines[cartID])
	assert.Contains(t, repo.carts, "u1")
	assert.Contains(t, repo.orders, o.ID)
}

func TestCheckout_RoundsTotal(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("u1", line("1", "Tea", "0.335", 3))
	svc := newService(repo)

	o, err := svc.Checkout(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "1.01", o.Total.StringFixed(2))
}

func TestCheckout_EmptyCart(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("empty")
	svc := newService(repo)

	_, err := svc.Checkout(context.Background(), "empty")
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.Checkout(context.Background(), "no-cart")
	require.ErrorIs(t, err, ErrEmptyCart)

	assert.Empty(t, repo.orders)
}

func TestCheckout_StorageFailureLeavesCart(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*mockRepo)
	}{
		{"read lines", func(m *mockRepo) { m.linesErr = errors.New("read failed") }},
		{"insert order", func(m *mockRepo) { m.insertErr = errors.New("insert failed") }},
		{"clear cart", func(m *mockRepo) { m.clearErr = errors.New("delete failed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			cartID := repo.addCart("u1", line("1", "Masala Dosa", "45.00", 2))
			tt.inject(repo)
			svc := newService(repo)

			_, err := svc.Checkout(context.Background(), "u1")
			require.ErrorIs(t, err, ErrOrderCreationFailed)

			var cErr *CreationError
			require.ErrorAs(t, err, &cErr)
			assert.Equal(t, "u1", cErr.UserID)

			assert.Empty(t, repo.orders)
			assert.Len(t, repo.lines[cartID], 1)
		})
	}
}

func TestCheckout_UnavailableProduct(t *testing.T) {
	gone := line("9", "Cold Coffee", "40.00", 1)
	gone.Available = false

	t.Run("default", func(t *testing.T) {
		repo := newMockRepo()
		repo.addCart("u1", gone)
		svc := newService(repo)

		o, err := svc.Checkout(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "40.00", o.Total.StringFixed(2))
	})

	t.Run("recheck", func(t *testing.T) {
		repo := newMockRepo()
		cartID := repo.addCart("u1", line("1", "Masala Dosa", "45.00", 1), gone)
		svc := newService(repo, WithAvailabilityRecheck(true))

		_, err := svc.Checkout(context.Background(), "u1")
		require.ErrorIs(t, err, ErrProductUnavailable)
		require.NotErrorIs(t, err, ErrOrderCreationFailed)

		var uErr *UnavailableError
		require.ErrorAs(t, err, &uErr)
		assert.Equal(t, "9", uErr.ProductID)
		assert.Len(t, repo.lines[cartID], 2)
		assert.Empty(t, repo.orders)
	})
}

func TestCheckout_SnapshotSurvivesCartChanges(t *testing.T) {
	repo := newMockRepo()
	cartID := repo.addCart("u1", line("1", "Masala Dosa", "45.00", 2))
	svc := newService(repo)

	o, err := svc.Checkout(context.Background(), "u1")
	require.NoError(t, err)

	repo.lines[cartID] = []cart.Line{line("1", "Masala Dosa", "99.00", 5)}

	got, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "90.00", got.Total.StringFixed(2))
	assert.Equal(t, "45.00", got.Lines[0].UnitPrice.StringFixed(2))
}

func TestSetStatus(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("u1", line("1", "Masala Dosa", "45.00", 2))
	svc := newService(repo)
	ctx := context.Background()

	o, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, o.ID, "preparing"))
	assert.Equal(t, StatusPreparing, repo.orders[o.ID].Status)

	require.NoError(t, svc.SetStatus(ctx, o.ID, "Ready"))
	require.NoError(t, svc.SetStatus(ctx, o.ID, "Delivered"))

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Equal(t, "90.00", got.Total.StringFixed(2))
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestSetStatus_Unconstrained(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("u1", line("1", "Masala Dosa", "45.00", 1))
	svc := newService(repo)
	ctx := context.Background()

	o, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, o.ID, "Cancelled"))
	require.NoError(t, svc.SetStatus(ctx, o.ID, "Placed"))
	assert.Equal(t, StatusPlaced, repo.orders[o.ID].Status)
}

func TestSetStatus_Enforced(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("u1", line("1", "Masala Dosa", "45.00", 1))
	svc := newService(repo, WithEnforcedTransitions(true))
	ctx := context.Background()

	o, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)

	err = svc.SetStatus(ctx, o.ID, "Delivered")
	require.ErrorIs(t, err, ErrInvalidTransition)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, StatusPlaced, tErr.From)
	assert.Equal(t, StatusDelivered, tErr.To)
	assert.Equal(t, StatusPlaced, repo.orders[o.ID].Status)

	require.NoError(t, svc.SetStatus(ctx, o.ID, "Placed"))
	require.NoError(t, svc.SetStatus(ctx, o.ID, "Ready"))
}

func TestSetStatus_Errors(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)
	ctx := context.Background()

	require.ErrorIs(t, svc.SetStatus(ctx, uuid.New(), "Shipped"), ErrInvalidStatus)
	require.ErrorIs(t, svc.SetStatus(ctx, uuid.New(), "Ready"), ErrNotFound)

	repo.updateErr = errors.New("connection reset")
	err := svc.SetStatus(ctx, uuid.New(), "Ready")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestListForUser(t *testing.T) {
	repo := newMockRepo()
	repo.addCart("u1", line("1", "Masala Dosa", "45.00", 1))
	repo.addCart("u2", line("3", "Veg Thali", "80.00", 1))
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, "u2")
	require.NoError(t, err)

	orders, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "45.00", orders[0].Total.StringFixed(2))

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
