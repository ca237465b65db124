package domain

import "github.com/shopspring/decimal"

// PlaceholderImage is shown for cart lines the cart service returns without an image
const PlaceholderImage = "/images/placeholder-dish.png"

type CartLine struct {
	ID        string          `json:"id"`        // Cart line id assigned by the cart service
	ProductID string          `json:"productId"` // Catalog item id, stable across cart operations
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"` // Always >= 1
	ImageRef  string          `json:"image,omitempty"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ClampQuantity enforces the quantity floor of a cart line.
// Removing a line is a separate operation, so nothing below 1 is ever sent.
func ClampQuantity(q int) int {
	return max(1, q)
}

// CartSnapshot is the full set of cart lines loaded for a user
type CartSnapshot struct {
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Find returns the index of the line with the given local id, or -1
func (s CartSnapshot) Find(lineID string) int {
	for i, line := range s.Lines {
		if line.ID == lineID {
			return i
		}
	}
	return -1
}

// FindProduct returns the index of the line holding productID, or -1
func (s CartSnapshot) FindProduct(productID string) int {
	for i, line := range s.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s CartSnapshot) Clone() CartSnapshot {
	lines := make([]CartLine, len(s.Lines))
	copy(lines, s.Lines)
	return CartSnapshot{UserID: s.UserID, Lines: lines}
}

// ItemCount is the number of units across all lines
func (s CartSnapshot) ItemCount() int {
	count := 0
	for _, line := range s.Lines {
		count += line.Quantity
	}
	return count
}
