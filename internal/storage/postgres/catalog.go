package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
)

const (
	productColumns = `id, title, category, price, available, image`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category = $1) AND (available OR NOT $2)
		ORDER BY category, title, id`

	createProductSQL = `INSERT INTO products (id, title, category, price, available, image)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateProductSQL = `UPDATE products
		SET title = $2, category = $3, price = $4, available = $5, image = $6, updated_at = now()
		WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, title, category, price, available, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, category = EXCLUDED.category, price = EXCLUDED.price,
			available = EXCLUDED.available, image = EXCLUDED.image, updated_at = now()`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	// Conflicts with the FOR UPDATE taken by category deactivation.
	shareActiveCategorySQL = `SELECT 1 FROM categories WHERE name = $1 AND active FOR SHARE`

	listProductIDsSQL = `SELECT id FROM products`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// List returns products matching the filter ordered by category and title.
func (r *ProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, filter.Category, filter.AvailableOnly)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// IDs returns the identifiers of every stored product.
func (r *ProductRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list product ids")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Create inserts a product, returning catalog.ErrProductExists for a taken ID
// and catalog.ErrCategoryNotFound unless its category is active.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	_, err := withTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := shareActiveCategory(ctx, tx, p.Category); err != nil {
			return struct{}{}, err
		}
		if _, err := tx.Exec(ctx, createProductSQL, productArgs(p)...); err != nil {
			if isUniqueViolation(err) {
				return struct{}{}, catalog.ErrProductExists
			}
			return struct{}{}, errors.Wrapf(err, "create product %q", p.ID)
		}
		return struct{}{}, nil
	})
	return err
}

// Update replaces the editable fields of an existing product. The target
// category must be active.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	_, err := withTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := shareActiveCategory(ctx, tx, p.Category); err != nil {
			return struct{}{}, err
		}
		tag, err := tx.Exec(ctx, updateProductSQL, productArgs(p)...)
		if err != nil {
			return struct{}{}, errors.Wrapf(err, "update product %q", p.ID)
		}
		if tag.RowsAffected() == 0 {
			return struct{}{}, catalog.ErrProductNotFound
		}
		return struct{}{}, nil
	})
	return err
}

// shareActiveCategory holds the category row until commit so it cannot be
// deactivated under a product write.
func shareActiveCategory(ctx context.Context, tx pgx.Tx, name string) error {
	var one int
	if err := tx.QueryRow(ctx, shareActiveCategorySQL, name).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrCategoryNotFound
		}
		return errors.Wrapf(err, "lock category %q", name)
	}
	return nil
}

// Upsert inserts a product or overwrites the one with the same ID.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, productArgs(p)...); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

// Delete removes a product. Cart and order lines keep their product IDs.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func productArgs(p *catalog.Product) []any {
	return []any{p.ID, p.Title, p.Category, p.Price, p.Available, p.Image}
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Price, &p.Available, &p.Image)
	return p, err
}

const (
	listCategoriesSQL = `SELECT id, name, active FROM categories
		WHERE active OR NOT $1 ORDER BY name`

	getCategoryByNameSQL = `SELECT id, name, active FROM categories WHERE name = $1`

	// Reactivates a soft-deleted category; returns no row for an active duplicate.
	createCategorySQL = `INSERT INTO categories (id, name, active) VALUES ($1, $2, TRUE)
		ON CONFLICT (name) DO UPDATE SET active = TRUE
		WHERE categories.active = FALSE
		RETURNING id`

	lockCategorySQL = `SELECT name FROM categories WHERE id = $1 AND active FOR UPDATE`

	categoryInUseSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE category = $1)`

	deactivateCategorySQL = `UPDATE categories SET active = FALSE WHERE id = $1`
)

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements catalog.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByName returns a category, active or not, by its unique name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*catalog.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByNameSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "get category %q", name)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, errors.Wrapf(err, "get category %q", name)
	}
	return &c, nil
}

// Create inserts the category or revives a soft-deleted one with the same
// name, in which case c.ID is set to the stored ID.
func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, createCategorySQL, c.ID, c.Name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrCategoryExists
		}
		return errors.Wrapf(err, "create category %q", c.Name)
	}
	c.ID = id
	c.Active = true
	return nil
}

// Deactivate soft-deletes an active category that no product references.
func (r *CategoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := withTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		var name string
		if err := tx.QueryRow(ctx, lockCategorySQL, id).Scan(&name); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, catalog.ErrCategoryNotFound
			}
			return struct{}{}, errors.Wrap(err, "lock category")
		}

		var inUse bool
		if err := tx.QueryRow(ctx, categoryInUseSQL, name).Scan(&inUse); err != nil {
			return struct{}{}, errors.Wrap(err, "check category use")
		}
		if inUse {
			return struct{}{}, catalog.ErrCategoryInUse
		}

		if _, err := tx.Exec(ctx, deactivateCategorySQL, id); err != nil {
			return struct{}{}, errors.Wrap(err, "deactivate category")
		}
		return struct{}{}, nil
	})
	return err
}

func scanCategory(row pgx.CollectableRow) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.Name, &c.Active)
	return c, err
}
