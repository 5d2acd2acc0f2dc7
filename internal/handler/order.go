package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/megharaj2002/canteen/internal/domain/order"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// PlaceOrder checks out the caller's cart.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Checkout(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Str(o.ID.String())
		e.FieldStart("total")
		money(e, o.Total)
		e.ObjEnd()
	})
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForUser(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeOrders(w, orders, false)
}

// ListAllOrders returns every order together with its customer.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeOrders(w, orders, true)
}

// SetOrderStatus updates the status of an order.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(param(r, "id"))
	if err != nil {
		fail(w, r, order.ErrNotFound)
		return
	}

	var status string
	err = readObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "order_status", "status":
			s, err := decodeString(d, key)
			status = s
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if status == "" {
		fail(w, r, badRequest("order_status is required"))
		return
	}

	if err := h.orders.SetStatus(r.Context(), id, status); err != nil {
		fail(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) writeOrders(w http.ResponseWriter, orders []order.Order, withCustomer bool) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			h.encodeOrder(e, o, withCustomer)
		}
		e.ArrEnd()
	})
}

func (h *Handler) encodeOrder(e *jx.Encoder, o order.Order, withCustomer bool) {
	created := o.CreatedAt.In(h.location)

	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID.String())
	if withCustomer {
		e.FieldStart("user_id")
		if o.UserID == "" {
			e.Null()
		} else {
			e.Str(o.UserID)
		}
		e.FieldStart("user")
		if c := o.Customer; c == nil {
			e.Null()
		} else {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(c.ID)
			e.FieldStart("name")
			e.Str(c.Name)
			e.FieldStart("email")
			e.Str(c.Email)
			e.ObjEnd()
		}
	}
	e.FieldStart("status")
	e.Str(o.Status.String())
	e.FieldStart("total")
	money(e, o.Total)
	e.FieldStart("formatted_total")
	e.Str(h.formatMoney(o.Total))
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("date")
	e.Str(created.Format(dateLayout))
	e.FieldStart("time")
	e.Str(created.Format(timeLayout))

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(l.ProductID)
		e.FieldStart("title")
		e.Str(l.Title)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("price")
		money(e, l.UnitPrice)
		e.FieldStart("line_total")
		money(e, l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// formatMoney renders an amount with the configured currency symbol using
// the configured language's number formatting.
func (h *Handler) formatMoney(d decimal.Decimal) string {
	return h.printer.Sprint(currency.Symbol(h.currency.Amount(d.InexactFloat64())))
}
