// Package seed loads the initial users, categories and menu into storage.
package seed

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
)

// Data is the decoded seed file.
type Data struct {
	Categories []string      `json:"categories"`
	Products   []ProductJSON `json:"products"`
	Users      []UserJSON    `json:"users"`
}

// ProductJSON is a menu entry of the seed file. Prices are decimal strings.
type ProductJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	Image     string          `json:"image"`
}

// Product converts the entry to its domain form.
func (p ProductJSON) Product() *catalog.Product {
	return &catalog.Product{
		ID:        p.ID,
		Title:     p.Title,
		Category:  p.Category,
		Price:     p.Price,
		Available: p.Available,
		Image:     p.Image,
	}
}

// UserJSON is an account of the seed file.
type UserJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Parse decodes and validates a seed file.
func Parse(data []byte) (*Data, error) {
	var d Data
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	for _, u := range d.Users {
		if u.ID == "" {
			return nil, errors.New("user without id")
		}
		if _, err := auth.ParseRole(u.Role); err != nil {
			return nil, errors.Wrapf(err, "user %q", u.ID)
		}
	}
	for _, p := range d.Products {
		if p.ID == "" || p.Title == "" {
			return nil, errors.Errorf("product %q: id and title are required", p.ID)
		}
	}
	return &d, nil
}

// Targets are the repositories a seed is written to.
type Targets struct {
	Users      auth.UserRepository
	Categories catalog.CategoryRepository
	Products   catalog.ProductRepository
}

// Stats counts what Apply wrote.
type Stats struct {
	Users      int
	Categories int
	Products   int
}

// Apply upserts users and products and creates missing categories. Running
// it twice leaves storage unchanged.
func Apply(ctx context.Context, d *Data, t Targets) (Stats, error) {
	var st Stats

	for _, u := range d.Users {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			return st, errors.Wrapf(err, "user %q", u.ID)
		}
		if err := t.Users.Upsert(ctx, &auth.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: role}); err != nil {
			return st, errors.Wrapf(err, "upsert user %q", u.ID)
		}
		st.Users++
	}

	for _, name := range d.Categories {
		err := t.Categories.Create(ctx, &catalog.Category{ID: uuid.New(), Name: name, Active: true})
		switch {
		case err == nil:
			st.Categories++
		case errors.Is(err, catalog.ErrCategoryExists):
		default:
			return st, errors.Wrapf(err, "create category %q", name)
		}
	}

	for _, p := range d.Products {
		if err := t.Products.Upsert(ctx, p.Product()); err != nil {
			return st, errors.Wrapf(err, "upsert product %q", p.ID)
		}
		st.Products++
	}
	return st, nil
}
