package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/cart"
)

const (
	findCartSQL = `SELECT id FROM carts WHERE user_id = $1`

	createCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)`

	// Lines keep no foreign key to products; a deleted product shows up
	// with empty display fields.
	cartLinesSQL = `SELECT l.id, l.product_id, l.quantity, l.unit_price,
			COALESCE(p.title, ''), COALESCE(p.image, ''), COALESCE(p.available, FALSE)
		FROM cart_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1
		ORDER BY l.created_at, l.id`

	addCartLineSQL = `INSERT INTO cart_lines (id, cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_lines.quantity + EXCLUDED.quantity
		WHERE cart_lines.quantity + EXCLUDED.quantity <= $6
		RETURNING id, quantity, unit_price`

	setCartLineQuantitySQL = `UPDATE cart_lines SET quantity = $3 WHERE id = $2 AND cart_id = $1`

	removeCartLineSQL = `DELETE FROM cart_lines WHERE id = $2 AND cart_id = $1`

	clearCartSQL = `DELETE FROM cart_lines WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindByUser returns the ID of the user's cart.
func (r *CartRepository) FindByUser(ctx context.Context, userID string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, findCartSQL, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, cart.ErrCartNotFound
		}
		return uuid.Nil, errors.Wrapf(err, "find cart of %q", userID)
	}
	return id, nil
}

// Create inserts a cart, mapping the unique user constraint to
// cart.ErrCartExists. Tokens of deleted users fail with auth.ErrUnauthorized.
func (r *CartRepository) Create(ctx context.Context, id uuid.UUID, userID string) error {
	if _, err := r.pool.Exec(ctx, createCartSQL, id, userID); err != nil {
		switch {
		case isUniqueViolation(err):
			return cart.ErrCartExists
		case isForeignKeyViolation(err):
			return errors.Wrapf(auth.ErrUnauthorized, "unknown user %q", userID)
		}
		return errors.Wrapf(err, "create cart for %q", userID)
	}
	return nil
}

// Lines returns the cart's lines joined with current product details.
func (r *CartRepository) Lines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	return queryCartLines(ctx, r.pool, cartLinesSQL, cartID)
}

// AddLine upserts a line. On conflict the stored quantity is incremented in
// the same statement and the original ID and unit price are kept. The
// conflict update is skipped, returning no row, when the sum would exceed
// cart.MaxQuantity.
func (r *CartRepository) AddLine(ctx context.Context, cartID uuid.UUID, line cart.Line) (*cart.Line, error) {
	if line.Quantity > cart.MaxQuantity {
		return nil, cart.ErrInvalidQuantity
	}
	out := line
	err := r.pool.QueryRow(ctx, addCartLineSQL,
		line.ID, cartID, line.ProductID, line.Quantity, line.UnitPrice, cart.MaxQuantity,
	).Scan(&out.ID, &out.Quantity, &out.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrInvalidQuantity
		}
		return nil, errors.Wrapf(err, "add product %q to cart", line.ProductID)
	}
	return &out, nil
}

// SetQuantity updates a line of the given cart.
func (r *CartRepository) SetQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) (bool, error) {
	tag, err := r.pool.Exec(ctx, setCartLineQuantitySQL, cartID, lineID, quantity)
	if err != nil {
		return false, errors.Wrap(err, "set line quantity")
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveLine deletes a line of the given cart.
func (r *CartRepository) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, removeCartLineSQL, cartID, lineID)
	if err != nil {
		return false, errors.Wrap(err, "remove line")
	}
	return tag.RowsAffected() > 0, nil
}

// Clear deletes all lines of the cart.
func (r *CartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, cartID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryCartLines(ctx context.Context, q querier, sql string, cartID uuid.UUID) ([]cart.Line, error) {
	rows, err := q.Query(ctx, sql, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, errors.Wrap(err, "scan cart lines")
	}
	return lines, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Title, &l.Image, &l.Available)
	return l, err
}
