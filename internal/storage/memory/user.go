package memory

import (
	"context"

	"github.com/megharaj2002/canteen/internal/domain/auth"
)

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository implements auth.UserRepository on a Store.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Upsert(_ context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[u.ID] = *u
	return nil
}

// Delete removes a user. Orders keep their rows with the user cleared.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	if cartID, ok := r.s.carts[id]; ok {
		delete(r.s.cartLines, cartID)
		delete(r.s.carts, id)
	}
	for oid, o := range r.s.orders {
		if o.UserID == id {
			o.UserID = ""
			r.s.orders[oid] = o
		}
	}
	return nil
}
