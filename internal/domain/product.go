package domain

import "github.com/shopspring/decimal"

// DefaultUnit is used when a size comes without a unit.
const DefaultUnit = "ml"

type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Size is one purchasable variant of a product (e.g. 50ml) with its own price and stock.
type Size struct {
	ID          string          `json:"_id"`
	Size        string          `json:"size"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"isAvailable"`
}

// Product as served by the catalog.
type Product struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Brand       string      `json:"brand"`
	Description string      `json:"description,omitempty"`
	Images      []Image     `json:"images"`
	Sizes       []Size      `json:"sizes"`
	Gender      string      `json:"gender,omitempty"`
	Season      string      `json:"season,omitempty"`
	Featured    bool        `json:"featured,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
}

// FindSize returns the size with the given id.
func (p Product) FindSize(sizeID string) (Size, bool) {
	for _, s := range p.Sizes {
		if s.ID == sizeID {
			return s, true
		}
	}
	return Size{}, false
}

// ComputePriceRange derives min/max over the product sizes. Returns nil when there are no sizes.
func (p Product) ComputePriceRange() *PriceRange {
	if len(p.Sizes) == 0 {
		return nil
	}
	r := &PriceRange{Min: p.Sizes[0].Price, Max: p.Sizes[0].Price}
	for _, s := range p.Sizes[1:] {
		if s.Price.LessThan(r.Min) {
			r.Min = s.Price
		}
		if s.Price.GreaterThan(r.Max) {
			r.Max = s.Price
		}
	}
	return r
}
