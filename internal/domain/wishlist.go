package domain

// WishlistEntry is the product snapshot kept in the wishlist, keyed by product id.
type WishlistEntry struct {
	ID         string      `json:"_id"`
	Name       string      `json:"name"`
	Brand      string      `json:"brand"`
	Images     []Image     `json:"images"`
	Sizes      []Size      `json:"sizes"`
	Gender     string      `json:"gender,omitempty"`
	Category   *Category   `json:"category,omitempty"`
	PriceRange *PriceRange `json:"priceRange,omitempty"`
}

func NewWishlistEntry(p Product) WishlistEntry {
	images := make([]Image, len(p.Images))
	copy(images, p.Images)
	sizes := make([]Size, len(p.Sizes))
	copy(sizes, p.Sizes)

	e := WishlistEntry{
		ID:     p.ID,
		Name:   p.Name,
		Brand:  p.Brand,
		Images: images,
		Sizes:  sizes,
		Gender: p.Gender,
	}
	if p.Category != nil {
		c := *p.Category
		e.Category = &c
	}
	if p.PriceRange != nil {
		r := *p.PriceRange
		e.PriceRange = &r
	} else {
		e.PriceRange = p.ComputePriceRange()
	}
	return e
}
