package cart

import "fmt"

// Outcome classifies what a cart command did.
type Outcome int

const (
	OutcomeAdded Outcome = iota + 1
	OutcomeMerged
	OutcomeRemoved
	OutcomeCleared
	OutcomeQuantityUpdated
	OutcomeUnchanged
	OutcomeSizeRequired
	OutcomeOutOfStock
	OutcomeStockLimit
	OutcomeInvalidQuantity
	OutcomeItemNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeMerged:
		return "merged"
	case OutcomeRemoved:
		return "removed"
	case OutcomeCleared:
		return "cleared"
	case OutcomeQuantityUpdated:
		return "quantity_updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSizeRequired:
		return "size_required"
	case OutcomeOutOfStock:
		return "out_of_stock"
	case OutcomeStockLimit:
		return "stock_limit"
	case OutcomeInvalidQuantity:
		return "invalid_quantity"
	case OutcomeItemNotFound:
		return "item_not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomeAdded; c <= OutcomeItemNotFound; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown cart outcome %q", text)
}

// Result is returned by every cart command. Rejections are values, not errors.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

func (r Result) Success() bool {
	switch r.Outcome {
	case OutcomeAdded, OutcomeMerged, OutcomeRemoved, OutcomeCleared, OutcomeQuantityUpdated:
		return true
	}
	return false
}

const (
	msgSelectSize      = "Please select a size"
	msgOutOfStock      = "This size is out of stock"
	msgMerged          = "Cart updated!"
	msgAdded           = "Added to cart!"
	msgRemoved         = "Removed from cart"
	msgQuantityUpdated = "Quantity updated"
	msgCleared         = "Cart cleared"
	msgInvalidQuantity = "Quantity must be at least 1"
	msgItemNotFound    = "Item not found in cart"
)

func stockLimitInStock(stock int) string {
	return fmt.Sprintf("Only %d items available in stock", stock)
}

func stockLimit(stock int) string {
	return fmt.Sprintf("Only %d items available", stock)
}
