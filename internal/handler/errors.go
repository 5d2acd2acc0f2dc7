package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/domain/order"
)

// badRequestError reports malformed request input.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{auth.ErrUnauthorized, http.StatusUnauthorized},
	{auth.ErrForbidden, http.StatusForbidden},

	{cart.ErrInvalidQuantity, http.StatusBadRequest},
	{catalog.ErrInvalidProduct, http.StatusBadRequest},
	{catalog.ErrInvalidCategory, http.StatusBadRequest},
	{order.ErrEmptyCart, http.StatusBadRequest},
	{order.ErrInvalidStatus, http.StatusBadRequest},

	{catalog.ErrProductNotFound, http.StatusNotFound},
	{catalog.ErrCategoryNotFound, http.StatusNotFound},
	{cart.ErrLineNotFound, http.StatusNotFound},
	{order.ErrNotFound, http.StatusNotFound},

	{catalog.ErrProductExists, http.StatusConflict},
	{catalog.ErrCategoryExists, http.StatusConflict},
	{catalog.ErrCategoryInUse, http.StatusConflict},
	{order.ErrInvalidTransition, http.StatusConflict},
	{order.ErrProductUnavailable, http.StatusConflict},
}

// classify maps an error to an HTTP status and a client-safe message.
func classify(err error) (int, string) {
	var bre *badRequestError
	if errors.As(err, &bre) {
		return http.StatusBadRequest, bre.msg
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status, err.Error()
		}
	}
	if errors.Is(err, order.ErrOrderCreationFailed) {
		return http.StatusInternalServerError, order.ErrOrderCreationFailed.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// fail writes the error response. Server-side failures are logged with the
// full error; clients only see a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}
