package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megharaj2002/canteen/db"
	"github.com/megharaj2002/canteen/internal/domain/catalog"
	"github.com/megharaj2002/canteen/internal/storage/memory"
)

func TestApplyEmbeddedMenu(t *testing.T) {
	d, err := Parse(db.Menu)
	require.NoError(t, err)

	store := memory.New()
	targets := Targets{Users: store.Users(), Categories: store.Categories(), Products: store.Products()}
	ctx := context.Background()

	st, err := Apply(ctx, d, targets)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 2, Categories: 4, Products: 8}, st)

	again, err := Apply(ctx, d, targets)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Categories)

	menu, err := catalog.NewService(store.Products(), store.Categories()).Menu(ctx, "")
	require.NoError(t, err)
	assert.Len(t, menu, 7)

	dosa, err := store.Products().GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Masala Dosa", dosa.Title)
	assert.Equal(t, "45.00", dosa.Price.StringFixed(2))
}

func TestParse_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":        `{`,
		"bad role":      `{"users":[{"id":"u","role":"root"}]}`,
		"user no id":    `{"users":[{"role":"user"}]}`,
		"product no id": `{"products":[{"title":"Tea","price":"1.00"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}
