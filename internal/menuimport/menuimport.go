// Package menuimport bulk-loads products from gzip-compressed JSON Lines
// files.
package menuimport

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/seed"
)

const (
	bloomFPR    = 0.001
	minCapacity = 1024
	maxLineSize = 1 << 20
)

// ProductStore is the product storage the importer writes to.
type ProductStore interface {
	IDs(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	Upsert(ctx context.Context, p *catalog.Product) error
}

// Importer writes menu files into storage.
type Importer struct {
	Products   ProductStore
	Categories catalog.CategoryRepository
	// Update overwrites products that already exist.
	Update bool
	Log    *slog.Logger
}

// Stats summarises an import.
type Stats struct {
	Read       int
	Invalid    int
	Skipped    int
	Written    int
	Categories int
}

// Run reads every file concurrently, then writes the products in file order.
// A product ID seen twice keeps its first occurrence.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	var st Stats
	lg := im.Log
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}

	parsed := make([][]seed.ProductJSON, len(files))
	invalid := make([]int, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			products, bad, err := ReadFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			lg.Info("file parsed", slog.String("path", path), slog.Int("products", len(products)), slog.Int("invalid", bad))
			parsed[i], invalid[i] = products, bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	for _, n := range invalid {
		st.Invalid += n
	}

	existing, err := im.existingFilter(ctx)
	if err != nil {
		return st, err
	}
	seen := make(map[string]struct{})
	categories := make(map[string]struct{})

	for _, products := range parsed {
		for _, p := range products {
			st.Read++
			if _, dup := seen[p.ID]; dup {
				st.Skipped++
				continue
			}
			seen[p.ID] = struct{}{}

			if !im.Update && existing.TestString(p.ID) {
				exists, err := im.exists(ctx, p.ID)
				if err != nil {
					return st, err
				}
				if exists {
					st.Skipped++
					continue
				}
			}

			if _, ok := categories[p.Category]; !ok {
				created, err := im.ensureCategory(ctx, p.Category)
				if err != nil {
					return st, err
				}
				if created {
					st.Categories++
				}
				categories[p.Category] = struct{}{}
			}

			if err := im.Products.Upsert(ctx, p.Product()); err != nil {
				return st, errors.Wrapf(err, "upsert product %q", p.ID)
			}
			st.Written++
		}
	}
	return st, nil
}

// existingFilter loads the stored product IDs into a bloom filter.
func (im *Importer) existingFilter(ctx context.Context) (*bloom.BloomFilter, error) {
	ids, err := im.Products.IDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list product ids")
	}
	f := bloom.NewWithEstimates(uint(max(len(ids), minCapacity)), bloomFPR)
	for _, id := range ids {
		f.AddString(id)
	}
	return f, nil
}

// exists confirms a bloom filter hit against storage.
func (im *Importer) exists(ctx context.Context, id string) (bool, error) {
	_, err := im.Products.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, catalog.ErrProductNotFound):
		return false, nil
	default:
		return false, errors.Wrapf(err, "get product %q", id)
	}
}

func (im *Importer) ensureCategory(ctx context.Context, name string) (bool, error) {
	c, err := im.Categories.GetByName(ctx, name)
	if err == nil && c.Active {
		return false, nil
	}
	if err != nil && !errors.Is(err, catalog.ErrCategoryNotFound) {
		return false, errors.Wrapf(err, "get category %q", name)
	}
	err = im.Categories.Create(ctx, &catalog.Category{ID: uuid.New(), Name: name, Active: true})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, catalog.ErrCategoryExists):
		return false, nil
	default:
		return false, errors.Wrapf(err, "create category %q", name)
	}
}

// ReadFile parses a gzip-compressed JSON Lines menu file. Blank lines are
// ignored and malformed records are counted in invalid.
func ReadFile(ctx context.Context, path string) (products []seed.ProductJSON, invalid int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, 0, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		p, err := DecodeProduct(line)
		if err != nil {
			invalid++
			continue
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "scan")
	}
	return products, invalid, nil
}

// DecodeProduct decodes and validates one menu record. Availability
// defaults to true.
func DecodeProduct(data []byte) (seed.ProductJSON, error) {
	p := seed.ProductJSON{Available: true}
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = decodeText(d)
		case "title":
			p.Title, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "available":
			p.Available, err = d.Bool()
		case "price":
			var raw string
			if raw, err = decodeText(d); err == nil {
				p.Price, err = decimal.NewFromString(raw)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return p, errors.Wrap(err, "decode")
	}

	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)
	switch {
	case p.ID == "" || p.Title == "" || p.Category == "":
		return p, errors.New("id, title and category are required")
	case p.Price.IsNegative() || p.Price.GreaterThan(catalog.MaxPrice) || !p.Price.Equal(p.Price.Round(2)):
		return p, errors.Errorf("invalid price %s", p.Price)
	}
	return p, nil
}

// decodeText reads a JSON string or number as text.
func decodeText(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		return n.String(), err
	}
	return d.Str()
}
