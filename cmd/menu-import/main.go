// Command menu-import loads products from *.jsonl.gz menu files into
// PostgreSQL, skipping products that already exist unless --update is set.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/megharaj2002/canteen/internal/menuimport"
	"github.com/megharaj2002/canteen/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		update      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz menu files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&update, "update", false, "overwrite products that already exist")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, update); err != nil {
		slog.Error("menu import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, databaseURL string, update bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list menu files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	im := &menuimport.Importer{
		Products:   postgres.NewProductRepository(pool),
		Categories: postgres.NewCategoryRepository(pool),
		Update:     update,
		Log:        slog.Default(),
	}
	st, err := im.Run(ctx, files)
	if err != nil {
		return err
	}

	slog.Info("menu import completed",
		slog.Int("files", len(files)),
		slog.Int("read", st.Read),
		slog.Int("invalid", st.Invalid),
		slog.Int("skipped", st.Skipped),
		slog.Int("written", st.Written),
		slog.Int("categories", st.Categories),
	)
	return nil
}
