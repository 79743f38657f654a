package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fjod/sillage/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations())
	return repo
}

func seedFixture(t *testing.T, repo RepoInterface) []*domain.Product {
	t.Helper()
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	defer f.Close()

	products, err := ParseSeed(f)
	require.NoError(t, err)
	n, err := Seed(context.Background(), repo, products)
	require.NoError(t, err)
	require.Equal(t, len(products), n)
	return products
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupRepo(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestNewRepository_UnsupportedDriver(t *testing.T) {
	_, err := NewRepository("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported catalog driver")
}

func TestGetProduct(t *testing.T) {
	repo := setupRepo(t)
	seedFixture(t, repo)

	p, err := repo.GetProduct(context.Background(), "oud-royal")
	require.NoError(t, err)

	assert.Equal(t, "Oud Royal", p.Name)
	assert.True(t, p.Featured)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Oriental", p.Category.Name)
	require.Len(t, p.Images, 2)
	require.Len(t, p.Sizes, 2)
	assert.Equal(t, "oud-50", p.Sizes[0].ID)
	assert.Equal(t, "ml", p.Sizes[0].Unit)
	assert.True(t, decimal.RequireFromString("85.5").Equal(p.Sizes[1].Price))
	assert.True(t, p.Sizes[1].IsAvailable)
	require.NotNil(t, p.PriceRange)
	assert.True(t, decimal.NewFromInt(50).Equal(p.PriceRange.Min))
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	repo := setupRepo(t)
	seedFixture(t, repo)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "oud-royal", products[0].ID)
	neroli := products[1]
	require.Len(t, neroli.Sizes, 1)
	assert.False(t, neroli.Sizes[0].IsAvailable)
	assert.Equal(t, 0, neroli.Sizes[0].Stock)
}

func TestUpsertProduct_ReplacesSizes(t *testing.T) {
	repo := setupRepo(t)
	products := seedFixture(t, repo)
	ctx := context.Background()

	updated := *products[0]
	updated.Name = "Oud Royal Intense"
	updated.Category = nil
	updated.Sizes = []domain.Size{{ID: "oud-75", Size: "75", Price: decimal.NewFromInt(70), Stock: 4, IsAvailable: true}}
	require.NoError(t, repo.UpsertProduct(ctx, &updated))

	p, err := repo.GetProduct(ctx, "oud-royal")
	require.NoError(t, err)
	assert.Equal(t, "Oud Royal Intense", p.Name)
	assert.Nil(t, p.Category)
	require.Len(t, p.Sizes, 1)
	assert.Equal(t, "oud-75", p.Sizes[0].ID)
	assert.Equal(t, domain.DefaultUnit, p.Sizes[0].Unit)
}
