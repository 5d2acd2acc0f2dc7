// Package handler exposes the canteen services over HTTP.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/domain/order"
)

// PathPrefix is the mount point of every API route.
const PathPrefix = "/api"

// TokenVerifier authenticates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// Currency and Language drive formatted_total in order listings.
	Currency currency.Unit
	Language language.Tag
	// Location is used for the date and time strings of order listings.
	Location *time.Location
}

// Handler serves the HTTP API, delegating business logic to the domain
// services.
type Handler struct {
	catalog *catalog.Service
	carts   *cart.Service
	orders  *order.Service
	tokens  TokenVerifier

	imageBaseURL string
	currency     currency.Unit
	printer      *message.Printer
	location     *time.Location
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	catalogService *catalog.Service,
	cartService *cart.Service,
	orderService *order.Service,
	tokens TokenVerifier,
) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Currency == (currency.Unit{}) {
		cfg.Currency = currency.INR
	}
	return &Handler{
		catalog:      catalogService,
		carts:        cartService,
		orders:       orderService,
		tokens:       tokens,
		imageBaseURL: strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		currency:     cfg.Currency,
		printer:      message.NewPrinter(cfg.Language),
		location:     cfg.Location,
	}
}

// Routes returns the API router. Every path starts with PathPrefix.
func (h *Handler) Routes() http.Handler {
	r := httprouter.New()
	r.HandleMethodNotAllowed = true
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	route := func(method, path string, next http.Handler) {
		r.Handler(method, PathPrefix+path, next)
	}

	// Menu.
	route(http.MethodGet, "/menu", http.HandlerFunc(h.Menu))
	route(http.MethodGet, "/categories", http.HandlerFunc(h.Categories))

	// Cart.
	route(http.MethodGet, "/cart", h.user(h.ViewCart))
	route(http.MethodPost, "/cart", h.user(h.AddToCart))
	route(http.MethodDelete, "/cart", h.user(h.ClearCart))
	route(http.MethodPut, "/cart/:line_id", h.user(h.UpdateCartLine))
	route(http.MethodDelete, "/cart/:line_id", h.user(h.RemoveCartLine))

	// Orders.
	route(http.MethodPost, "/order", h.user(h.PlaceOrder))
	route(http.MethodGet, "/orders", h.user(h.ListOrders))

	// Administration.
	route(http.MethodGet, "/admin/orders", h.admin(h.ListAllOrders))
	route(http.MethodPut, "/admin/orders/:id/status", h.admin(h.SetOrderStatus))
	route(http.MethodGet, "/admin/products", h.admin(h.ListProducts))
	route(http.MethodPost, "/admin/products", h.admin(h.CreateProduct))
	route(http.MethodPut, "/admin/products/:id", h.admin(h.UpdateProduct))
	route(http.MethodDelete, "/admin/products/:id", h.admin(h.DeleteProduct))
	route(http.MethodPost, "/admin/categories", h.admin(h.CreateCategory))
	route(http.MethodDelete, "/admin/categories/:id", h.admin(h.DeleteCategory))

	return r
}

func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}
