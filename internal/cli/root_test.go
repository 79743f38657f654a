package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/sillage/internal/catalog"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "storefront", cmd.Use)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"serve"}, {"catalog"}, {"catalog", "migrate"}, {"catalog", "seed"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("port"))
}

func TestCatalogSeed(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "catalog.db")
	cfgPath := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  dsn: "+dsn+"\nlog:\n  level: error\n"), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "catalog", "seed", filepath.Join("..", "catalog", "testdata", "catalog.yaml")})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "seeded 2 products")

	repo, err := catalog.NewRepository(catalog.DriverSQLite, dsn)
	require.NoError(t, err)
	defer repo.Close()

	p, err := repo.GetProduct(t.Context(), "oud-royal")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Sizes)
}

func TestCatalogSeed_MissingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  dsn: "+filepath.Join(dir, "c.db")+"\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", cfgPath, "catalog", "seed", filepath.Join(dir, "missing.yaml")})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "failed to open seed file")
}
