package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/megharaj2002/canteen/internal/domain/cart"
)

// ViewCart returns the caller's cart, creating an empty one on first use.
func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cart_id")
		e.Str(view.CartID.String())
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range view.Lines {
			h.encodeCartLine(e, l)
		}
		e.ArrEnd()
		e.FieldStart("total")
		money(e, view.Total)
		e.ObjEnd()
	})
}

func (h *Handler) encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(l.ID.String())
	e.FieldStart("product_id")
	e.Str(l.ProductID)
	e.FieldStart("title")
	e.Str(l.Title)
	e.FieldStart("image")
	e.Str(h.imageURL(l.Image))
	e.FieldStart("price")
	money(e, l.UnitPrice)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("line_total")
	money(e, l.Subtotal())
	e.FieldStart("available")
	e.Bool(l.Available)
	e.ObjEnd()
}

// AddToCart adds a product to the caller's cart. Quantity defaults to 1.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := readObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "item_id", "product_id":
			id, err := decodeID(d, key)
			productID = id
			return err
		case "quantity":
			v, ok, err := decodeInt(d, key)
			if ok {
				quantity = v
			}
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if productID == "" {
		fail(w, r, badRequest("item_id is required"))
		return
	}

	line, err := h.carts.AddItem(r.Context(), principal(r).UserID, productID, quantity)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cart_item_id")
		e.Str(line.ID.String())
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.ObjEnd()
	})
}

// UpdateCartLine sets the quantity of a line. A quantity of zero or less
// removes the line.
func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(param(r, "line_id"))
	if err != nil {
		fail(w, r, cart.ErrLineNotFound)
		return
	}

	var (
		quantity int
		present  bool
	)
	err = readObject(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, ok, err := decodeInt(d, key)
		quantity, present = v, ok
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !present {
		fail(w, r, badRequest("quantity is required"))
		return
	}

	res, err := h.carts.SetQuantity(r.Context(), principal(r).UserID, lineID, quantity)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		if res.Deleted {
			e.FieldStart("deleted")
			e.Bool(true)
		} else {
			e.FieldStart("quantity")
			e.Int(res.Quantity)
		}
		e.ObjEnd()
	})
}

// RemoveCartLine deletes a line from the caller's cart.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(param(r, "line_id"))
	if err != nil {
		fail(w, r, cart.ErrLineNotFound)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), principal(r).UserID, lineID); err != nil {
		fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), principal(r).UserID); err != nil {
		fail(w, r, err)
		return
	}
	writeSuccess(w)
}
