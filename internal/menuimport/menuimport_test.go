package menuimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/storage/memory"
)

// --- Helpers ---

func writeGz(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func newImporter(t *testing.T, store *memory.Store) *Importer {
	t.Helper()
	return &Importer{Products: store.Products(), Categories: store.Categories()}
}

// --- Tests ---

func TestDecodeProduct(t *testing.T) {
	p, err := DecodeProduct([]byte(`{"id":12,"title":" Lassi ","category":"Beverages","price":"30.5","extra":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "12", p.ID)
	assert.Equal(t, "Lassi", p.Title)
	assert.True(t, p.Available)
	assert.Equal(t, "30.50", p.Price.StringFixed(2))

	for name, line := range map[string]string{
		"syntax":         `{"id":"1"`,
		"no title":       `{"id":"1","category":"Meals","price":1}`,
		"no category":    `{"id":"1","title":"Tea","price":1}`,
		"negative price": `{"id":"1","title":"Tea","category":"Meals","price":-1}`,
		"sub paisa":      `{"id":"1","title":"Tea","category":"Meals","price":1.005}`,
		"huge price":     `{"id":"1","title":"Tea","category":"Meals","price":"100000000.00"}`,
		"bad available":  `{"id":"1","title":"Tea","category":"Meals","price":1,"available":"yes"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProduct([]byte(line))
			require.Error(t, err)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := writeGz(t, "menu.jsonl.gz",
		`{"id":"1","title":"Tea","category":"Beverages","price":10}`,
		``,
		`not json`,
		`{"id":"3","title":"Gold Tea","category":"Beverages","price":1e12}`,
		`{"id":"2","title":"Coffee","category":"Beverages","price":"20.00","available":false}`,
	)

	products, invalid, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, invalid)
	require.Len(t, products, 2)
	assert.False(t, products[1].Available)

	_, _, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.gz"))
	require.Error(t, err)
}

func TestImporter_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Categories().Create(ctx, &catalog.Category{ID: uuid.New(), Name: "Meals", Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, &catalog.Product{
		ID: "1", Title: "Veg Thali", Category: "Meals", Price: decimal.NewFromInt(80), Available: true,
	}))

	files := []string{
		writeGz(t, "a.jsonl.gz",
			`{"id":"1","title":"Thali v2","category":"Meals","price":95}`,
			`{"id":"2","title":"Biryani","category":"Meals","price":110}`,
		),
		writeGz(t, "b.jsonl.gz",
			`{"id":"2","title":"Biryani again","category":"Meals","price":1}`,
			`{"id":"3","title":"Samosa","category":"Snacks","price":15}`,
			`{"id":"4"}`,
		),
	}

	st, err := newImporter(t, store).Run(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 4, Invalid: 1, Skipped: 2, Written: 2, Categories: 1}, st)

	thali, err := store.Products().GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Veg Thali", thali.Title)

	biryani, err := store.Products().GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Biryani", biryani.Title)

	snacks, err := store.Categories().GetByName(ctx, "Snacks")
	require.NoError(t, err)
	assert.True(t, snacks.Active)
}

func TestImporter_Update(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Products().Upsert(ctx, &catalog.Product{
		ID: "1", Title: "Veg Thali", Category: "Meals", Price: decimal.NewFromInt(80), Available: true,
	}))

	im := newImporter(t, store)
	im.Update = true
	st, err := im.Run(ctx, []string{writeGz(t, "a.jsonl.gz",
		`{"id":"1","title":"Thali v2","category":"Meals","price":95,"available":false}`,
	)})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Written)

	thali, err := store.Products().GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Thali v2", thali.Title)
	assert.False(t, thali.Available)
}

func TestImporter_MissingFile(t *testing.T) {
	_, err := newImporter(t, memory.New()).Run(context.Background(), []string{"/nonexistent/menu.jsonl.gz"})
	require.Error(t, err)
}
