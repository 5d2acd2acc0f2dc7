package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository on a Store.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) List(_ context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := lo.Filter(lo.Values(r.s.products), func(p catalog.Product, _ int) bool {
		if filter.AvailableOnly && !p.Available {
			return false
		}
		return filter.Category == "" || p.Category == filter.Category
	})
	slices.SortFunc(out, func(a, b catalog.Product) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

// IDs returns the identifiers of every stored product.
func (r *ProductRepository) IDs(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lo.Keys(r.s.products), nil
}

func (r *ProductRepository) Create(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return catalog.ErrProductExists
	}
	if !r.s.activeCategory(p.Category) {
		return catalog.ErrCategoryNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) Update(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	if !r.s.activeCategory(p.Category) {
		return catalog.ErrCategoryNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) Upsert(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements catalog.CategoryRepository on a Store.
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) List(_ context.Context, activeOnly bool) ([]catalog.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := lo.Filter(lo.Values(r.s.categories), func(c catalog.Category, _ int) bool {
		return c.Active || !activeOnly
	})
	slices.SortFunc(out, func(a, b catalog.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *CategoryRepository) GetByName(_ context.Context, name string) (*catalog.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categoryByName(name)
	if !ok {
		return nil, catalog.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) Create(_ context.Context, c *catalog.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.categoryByName(c.Name); ok {
		if existing.Active {
			return catalog.ErrCategoryExists
		}
		existing.Active = true
		r.s.categories[existing.ID] = existing
		*c = existing
		return nil
	}
	c.Active = true
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok || !c.Active {
		return catalog.ErrCategoryNotFound
	}
	for _, p := range r.s.products {
		if p.Category == c.Name {
			return catalog.ErrCategoryInUse
		}
	}
	c.Active = false
	r.s.categories[id] = c
	return nil
}

func (s *Store) categoryByName(name string) (catalog.Category, bool) {
	return lo.Find(lo.Values(s.categories), func(c catalog.Category) bool {
		return c.Name == name
	})
}

// activeCategory reports whether an active category has the name. The caller
// holds the lock.
func (s *Store) activeCategory(name string) bool {
	c, ok := s.categoryByName(name)
	return ok && c.Active
}
