// Command seed-db migrates the database and loads the canteen menu and
// users. With --jwt-secret it also prints a bearer token per seeded user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/megharaj2002/canteen/db"
	"github.com/megharaj2002/canteen/internal/domain/auth"
	"github.com/megharaj2002/canteen/internal/seed"
	"github.com/megharaj2002/canteen/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		menuFile    string
		jwtSecret   string
		tokenTTL    time.Duration
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "", "path to a menu JSON file (defaults to the embedded menu)")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "print tokens signed with this secret (or CANTEEN_JWT_SECRET env)")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("CANTEEN_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile, jwtSecret, tokenTTL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile, jwtSecret string, ttl time.Duration) error {
	data := db.Menu
	if menuFile != "" {
		slog.Info("reading menu file", slog.String("path", menuFile))
		b, err := os.ReadFile(menuFile)
		if err != nil {
			return errors.Wrap(err, "read menu file")
		}
		data = b
	}
	menu, err := seed.Parse(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	st, err := seed.Apply(ctx, menu, seed.Targets{
		Users:      postgres.NewUserRepository(pool),
		Categories: postgres.NewCategoryRepository(pool),
		Products:   postgres.NewProductRepository(pool),
	})
	if err != nil {
		return errors.Wrap(err, "apply seed")
	}
	slog.Info("seeded",
		slog.Int("users", st.Users),
		slog.Int("categories", st.Categories),
		slog.Int("products", st.Products),
	)

	if jwtSecret == "" {
		return nil
	}
	tokens := auth.NewTokens([]byte(jwtSecret))
	for _, u := range menu.Users {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			return err
		}
		tok, err := tokens.Issue(auth.Principal{UserID: u.ID, Role: role}, ttl)
		if err != nil {
			return errors.Wrapf(err, "issue token for %q", u.ID)
		}
		fmt.Printf("%s\t%s\t%s\n", u.ID, role, tok)
	}
	return nil
}
