package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWishlistEntry_CopiesReferences(t *testing.T) {
	p := Product{
		ID:         "p1",
		Name:       "Oud",
		Images:     []Image{{URL: "a.jpg"}},
		Sizes:      []Size{{ID: "s1", Price: decimal.NewFromInt(50), Stock: 3, IsAvailable: true}},
		Category:   &Category{ID: "c1", Name: "Oriental"},
		PriceRange: &PriceRange{Min: decimal.NewFromInt(50), Max: decimal.NewFromInt(90)},
	}

	e := NewWishlistEntry(p)

	p.Images[0].URL = "b.jpg"
	p.Sizes[0].Stock = 0
	p.Category.Name = "Fresh"
	p.PriceRange.Min = decimal.NewFromInt(1)

	assert.Equal(t, "a.jpg", e.Images[0].URL)
	assert.Equal(t, 3, e.Sizes[0].Stock)
	assert.Equal(t, "Oriental", e.Category.Name)
	require.NotNil(t, e.PriceRange)
	assert.True(t, decimal.NewFromInt(50).Equal(e.PriceRange.Min))
	assert.NotSame(t, p.PriceRange, e.PriceRange)
}

func TestNewWishlistEntry_ComputesMissingPriceRange(t *testing.T) {
	p := Product{
		ID: "p1",
		Sizes: []Size{
			{ID: "s1", Price: decimal.NewFromInt(70)},
			{ID: "s2", Price: decimal.NewFromInt(40)},
		},
	}

	e := NewWishlistEntry(p)

	require.NotNil(t, e.PriceRange)
	assert.True(t, decimal.NewFromInt(40).Equal(e.PriceRange.Min))
	assert.True(t, decimal.NewFromInt(70).Equal(e.PriceRange.Max))
}
