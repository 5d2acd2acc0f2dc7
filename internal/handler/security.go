package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/megharaj2002/canteen/internal/domain/auth"
)

const bearerPrefix = "bearer "

// user authenticates the bearer token of the request and stores the caller in
// the request context.
func (h *Handler) user(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.authenticate(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = zctx.With(ctx, zap.String("user_id", p.UserID))
		next(w, r.WithContext(ctx))
	})
}

// admin is user restricted to callers with the admin role.
func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return h.user(func(w http.ResponseWriter, r *http.Request) {
		if p, _ := auth.FromContext(r.Context()); !p.IsAdmin() {
			fail(w, r, auth.ErrForbidden)
			return
		}
		next(w, r)
	})
}

func (h *Handler) authenticate(r *http.Request) (auth.Principal, error) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return auth.Principal{}, errors.Wrap(auth.ErrUnauthorized, "missing bearer token")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return auth.Principal{}, errors.Wrap(auth.ErrUnauthorized, "missing bearer token")
	}
	return h.tokens.Verify(token)
}

// principal returns the caller placed in the context by user.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
