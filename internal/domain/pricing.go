package domain

import "github.com/shopspring/decimal"

// Pricing holds the constants used to derive cart totals.
type Pricing struct {
	DiscountRate          decimal.Decimal `json:"discountRate"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	ShippingCost          decimal.Decimal `json:"shippingCost"`
}

func DefaultPricing() Pricing {
	return Pricing{
		DiscountRate:          decimal.RequireFromString("0.20"),
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingCost:          decimal.NewFromInt(15),
	}
}

// Totals is derived from the line items on every read and never stored.
type Totals struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	Discount              decimal.Decimal `json:"discount"`
	SubtotalAfterDiscount decimal.Decimal `json:"subtotalAfterDiscount"`
	Shipping              decimal.Decimal `json:"shipping"`
	Total                 decimal.Decimal `json:"total"`
	TotalSavings          decimal.Decimal `json:"totalSavings"`
	ItemCount             int             `json:"itemCount"`
	DiscountRate          decimal.Decimal `json:"discountRate"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
}

// Compute derives totals. Shipping is waived only when the discounted subtotal is
// strictly above the threshold; an empty cart still carries the shipping cost.
func (p Pricing) Compute(items []LineItem) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		count += item.Quantity
	}

	discount := subtotal.Mul(p.DiscountRate)
	afterDiscount := subtotal.Sub(discount)

	shipping := p.ShippingCost
	if afterDiscount.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal:              subtotal,
		Discount:              discount,
		SubtotalAfterDiscount: afterDiscount,
		Shipping:              shipping,
		Total:                 afterDiscount.Add(shipping),
		TotalSavings:          discount,
		ItemCount:             count,
		DiscountRate:          p.DiscountRate,
		FreeShippingThreshold: p.FreeShippingThreshold,
	}
}
