package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput holds the admin-editable fields of a product.
type ProductInput struct {
	ID        string
	Title     string
	Category  string
	Price     decimal.Decimal
	Available bool
	Image     string
}

// Service implements menu browsing and catalog administration.
type Service struct {
	products   ProductRepository
	categories CategoryRepository
}

// NewService creates a catalog Service.
func NewService(products ProductRepository, categories CategoryRepository) *Service {
	return &Service{
		products:   products,
		categories: categories,
	}
}

// Menu returns available products, optionally restricted to one category.
func (s *Service) Menu(ctx context.Context, category string) ([]Product, error) {
	products, err := s.products.List(ctx, ProductFilter{
		Category:      strings.TrimSpace(category),
		AvailableOnly: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Products returns every product, including unavailable ones.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx, ProductFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Categories returns active categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// CreateProduct validates the input and stores a new product. A missing ID
// is generated.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	p, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, ErrProductExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	in.ID = id
	p, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// DeleteProduct removes a product from the catalog. Order history keeps its
// own snapshot and is not touched.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// CreateCategory adds a category, reviving a previously deleted one with the
// same name.
func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidCategory, "name is required")
	}

	c := &Category{ID: uuid.New(), Name: name, Active: true}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create category")
	}
	return c, nil
}

// DeleteCategory soft-deletes a category unless a product references it.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categories.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryInUse) {
			return err
		}
		return errors.Wrap(err, "delete category")
	}
	return nil
}

func (s *Service) validate(ctx context.Context, in ProductInput) (*Product, error) {
	p := &Product{
		ID:        strings.TrimSpace(in.ID),
		Title:     strings.TrimSpace(in.Title),
		Category:  strings.TrimSpace(in.Category),
		Price:     in.Price,
		Available: in.Available,
		Image:     strings.TrimSpace(in.Image),
	}

	switch {
	case p.Title == "":
		return nil, errors.Wrap(ErrInvalidProduct, "title is required")
	case p.Category == "":
		return nil, errors.Wrap(ErrInvalidProduct, "category is required")
	case p.Price.IsNegative():
		return nil, errors.Wrap(ErrInvalidProduct, "price must not be negative")
	case p.Price.GreaterThan(MaxPrice):
		return nil, errors.Wrapf(ErrInvalidProduct, "price must not exceed %s", MaxPrice)
	case !p.Price.Equal(p.Price.Round(2)):
		return nil, errors.Wrap(ErrInvalidProduct, "price must have at most 2 decimal places")
	}

	c, err := s.categories.GetByName(ctx, p.Category)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get category")
	}
	if !c.Active {
		return nil, ErrCategoryNotFound
	}
	p.Category = c.Name
	return p, nil
}
