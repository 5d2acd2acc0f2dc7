package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
)

// Menu lists available products, optionally filtered by ?category=.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Menu(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

// Categories lists active categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			encodeCategory(e, c)
		}
		e.ArrEnd()
	})
}

// ListProducts lists every product including unavailable ones.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readProduct(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeProduct(w, http.StatusCreated, p)
}

// UpdateProduct replaces the editable fields of a product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readProduct(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), param(r, "id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeProduct(w, http.StatusOK, p)
}

// DeleteProduct removes a product. Existing orders are unaffected.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), param(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// CreateCategory adds a category or revives a deleted one.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var name string
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "name" {
			return d.Skip()
		}
		s, err := decodeString(d, key)
		name = s
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeCategory(e, *c)
	})
}

// DeleteCategory soft-deletes a category no product references.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(param(r, "id"))
	if err != nil {
		fail(w, r, catalog.ErrCategoryNotFound)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// readProduct decodes a product body. Availability defaults to true.
func readProduct(r *http.Request) (catalog.ProductInput, error) {
	in := catalog.ProductInput{Available: true}
	var pricePresent bool
	err := readObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			in.ID, err = decodeID(d, key)
		case "title", "name":
			in.Title, err = decodeString(d, key)
		case "category":
			in.Category, err = decodeString(d, key)
		case "price":
			in.Price, err = decodeDecimal(d, key)
			pricePresent = true
		case "available":
			in.Available, err = decodeBool(d, key)
		case "image":
			in.Image, err = decodeString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return in, err
	}
	if !pricePresent {
		return in, badRequest("price is required")
	}
	return in, nil
}

func (h *Handler) writeProducts(w http.ResponseWriter, products []catalog.Product) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			h.encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

func (h *Handler) writeProduct(w http.ResponseWriter, status int, p *catalog.Product) {
	writeJSON(w, status, func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}

func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("available")
	e.Bool(p.Available)
	e.FieldStart("image")
	e.Str(h.imageURL(p.Image))
	e.ObjEnd()
}

func encodeCategory(e *jx.Encoder, c catalog.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID.String())
	e.FieldStart("name")
	e.Str(c.Name)
	e.ObjEnd()
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimPrefix(path, "/")
}
