package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed_Defaults(t *testing.T) {
	products, err := ParseSeed(strings.NewReader(`
products:
  - id: p1
    name: One
    sizes:
      - id: s1
        size: "50"
        price: "19.99"
        stock: 3
`))
	require.NoError(t, err)
	require.Len(t, products, 1)

	s := products[0].Sizes[0]
	assert.Equal(t, "ml", s.Unit)
	assert.True(t, s.IsAvailable)
	assert.Equal(t, "19.99", s.Price.String())
	assert.Nil(t, products[0].Category)
}

func TestParseSeed_Empty(t *testing.T) {
	products, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "products:\n  - id: p1\n",
			want: "id and name are required",
		},
		{
			name: "duplicate product",
			yaml: "products:\n  - {id: p1, name: A}\n  - {id: p1, name: B}\n",
			want: "duplicate id",
		},
		{
			name: "bad price",
			yaml: "products:\n  - id: p1\n    name: A\n    sizes:\n      - {id: s1, price: abc}\n",
			want: "invalid price",
		},
		{
			name: "negative stock",
			yaml: "products:\n  - id: p1\n    name: A\n    sizes:\n      - {id: s1, price: \"1\", stock: -1}\n",
			want: "must not be negative",
		},
		{
			name: "unknown field",
			yaml: "products:\n  - id: p1\n    name: A\n    colour: red\n",
			want: "decode seed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
