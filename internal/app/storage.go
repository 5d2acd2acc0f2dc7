package app

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/megharaj2002/canteen/db"
	"github.com/megharaj2002/canteen/internal/domain/cart"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/domain/order"
	"github.com/megharaj2002/canteen/internal/seed"
	"github.com/megharaj2002/canteen/internal/storage/memory"
	"github.com/megharaj2002/canteen/internal/storage/postgres"
	"github.com/megharaj2002/canteen/pkg/health"
)

type productStore interface {
	catalog.ProductRepository
	cart.ProductReader
}

// repositories is the storage backend the services run on.
type repositories struct {
	products   productStore
	categories catalog.CategoryRepository
	carts      cart.Repository
	orders     order.Repository
	close      func()
}

// openStorage connects the configured backend and registers its readiness
// checks. The in-memory backend starts with the embedded menu.
func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, hc *health.Health) (*repositories, error) {
	switch strings.ToLower(cfg.Storage) {
	case StorageMemory:
		store := memory.New()
		d, err := seed.Parse(db.Menu)
		if err != nil {
			return nil, errors.Wrap(err, "parse menu")
		}
		st, err := seed.Apply(ctx, d, seed.Targets{
			Users:      store.Users(),
			Categories: store.Categories(),
			Products:   store.Products(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "seed menu")
		}
		lg.Warn("Using in-memory storage, data is lost on restart",
			zap.Int("products", st.Products),
			zap.Int("users", st.Users),
		)
		return &repositories{
			products:   store.Products(),
			categories: store.Categories(),
			carts:      store.Carts(),
			orders:     store.Orders(),
			close:      func() {},
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		hc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		return &repositories{
			products:   postgres.NewProductRepository(pool),
			categories: postgres.NewCategoryRepository(pool),
			carts:      postgres.NewCartRepository(pool),
			orders:     postgres.NewOrderRepository(pool),
			close:      pool.Close,
		}, nil
	}
}
