package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/order"
)

const (
	lockCartSQL = `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`

	// Line locks make a concurrent merge or quantity update either land
	// before the read or wait until the lines are gone.
	lockCartLinesSQL = cartLinesSQL + `
		FOR UPDATE OF l`

	insertOrderSQL = `INSERT INTO orders (id, user_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, position, product_id, title, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	orderColumns = `o.id, o.user_id, o.total, o.status, o.created_at, o.updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id`

	listAllOrdersSQL = `SELECT ` + orderColumns + `, u.id, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id`

	orderLinesSQL = `SELECT order_id, id, product_id, title, quantity, unit_price
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	lockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InCheckoutTx runs fn in a transaction. Locks taken through the CheckoutTx
// are held until commit or rollback.
func (r *OrderRepository) InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx order.CheckoutTx) error) error {
	_, err := withTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, &checkoutTx{tx: tx})
	})
	return err
}

type checkoutTx struct {
	tx pgx.Tx
}

var _ order.CheckoutTx = (*checkoutTx)(nil)

func (c *checkoutTx) LockCart(ctx context.Context, userID string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := c.tx.QueryRow(ctx, lockCartSQL, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, cart.ErrCartNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (c *checkoutTx) CartLines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	return queryCartLines(ctx, c.tx, lockCartLinesSQL, cartID)
}

func (c *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	if _, err := c.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Total, o.Status, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "insert order row")
	}

	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(insertOrderLineSQL, l.ID, o.ID, i, l.ProductID, l.Title, l.Quantity, l.UnitPrice)
	}
	if err := c.tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "insert order lines")
	}
	return nil
}

func (c *checkoutTx) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := c.tx.Exec(ctx, clearCartSQL, cartID); err != nil {
		return err
	}
	return nil
}

// Get returns an order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders with lines, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order with customer details and lines, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list all orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrderWithCustomer)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus locks the order row, lets check veto the change and writes
// the new status.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	next order.Status,
	at time.Time,
	check func(current order.Status) error,
) (order.Status, error) {
	return withTx(ctx, r.pool, func(tx pgx.Tx) (order.Status, error) {
		var current order.Status
		if err := tx.QueryRow(ctx, lockOrderStatusSQL, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", order.ErrNotFound
			}
			return "", errors.Wrap(err, "lock order")
		}
		if err := check(current); err != nil {
			return "", err
		}
		if _, err := tx.Exec(ctx, updateOrderStatusSQL, id, next, at); err != nil {
			return "", errors.Wrap(err, "update order status")
		}
		return current, nil
	})
}

type orderLineRow struct {
	orderID uuid.UUID
	line    order.Line
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := lo.Map(orders, func(o order.Order, _ int) uuid.UUID { return o.ID })

	rows, err := r.pool.Query(ctx, orderLinesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orderLineRow, error) {
		var lr orderLineRow
		l := &lr.line
		err := row.Scan(&lr.orderID, &l.ID, &l.ProductID, &l.Title, &l.Quantity, &l.UnitPrice)
		return lr, err
	})
	if err != nil {
		return errors.Wrap(err, "scan order lines")
	}

	byOrder := lo.GroupBy(lines, func(lr orderLineRow) uuid.UUID { return lr.orderID })
	for i := range orders {
		orders[i].Lines = lo.Map(byOrder[orders[i].ID], func(lr orderLineRow, _ int) order.Line { return lr.line })
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		userID *string
	)
	err := row.Scan(&o.ID, &userID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	o.UserID = lo.FromPtr(userID)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, err
}

func scanOrderWithCustomer(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                       order.Order
		userID                  *string
		custID, custName, email *string
	)
	err := row.Scan(&o.ID, &userID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&custID, &custName, &email,
	)
	o.UserID = lo.FromPtr(userID)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	if custID != nil {
		o.Customer = &order.Customer{
			ID:    *custID,
			Name:  lo.FromPtr(custName),
			Email: lo.FromPtr(email),
		}
	}
	return o, err
}
