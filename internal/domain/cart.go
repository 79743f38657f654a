package domain

import "github.com/shopspring/decimal"

// ProductSnapshot is the part of a product captured when it is put in the cart.
type ProductSnapshot struct {
	ID     string  `json:"_id"`
	Name   string  `json:"name"`
	Brand  string  `json:"brand"`
	Images []Image `json:"images"`
}

// SizeSnapshot is the size captured when it is put in the cart. Stock is the
// bound used for every later quantity change of the line item.
type SizeSnapshot struct {
	ID          string          `json:"_id"`
	Size        string          `json:"size"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"isAvailable"`
}

// LineItem is one cart row. At most one exists per (product, size) pair.
type LineItem struct {
	ID       string          `json:"_id"`
	Product  ProductSnapshot `json:"product"`
	Size     SizeSnapshot    `json:"size"`
	Quantity int             `json:"quantity"`
}

func LineItemID(productID, sizeID string) string {
	return productID + "-" + sizeID
}

// NewLineItem snapshots product and size. Later catalog changes do not affect it.
func NewLineItem(p Product, s Size, quantity int) LineItem {
	unit := s.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	images := make([]Image, len(p.Images))
	copy(images, p.Images)

	return LineItem{
		ID: LineItemID(p.ID, s.ID),
		Product: ProductSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			Brand:  p.Brand,
			Images: images,
		},
		Size: SizeSnapshot{
			ID:          s.ID,
			Size:        s.Size,
			Unit:        unit,
			Price:       s.Price,
			Stock:       s.Stock,
			IsAvailable: s.IsAvailable,
		},
		Quantity: quantity,
	}
}

func (l LineItem) LineTotal() decimal.Decimal {
	return l.Size.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
