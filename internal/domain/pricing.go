package domain

import "github.com/shopspring/decimal"

// PricingBreakdown is derived from a cart snapshot on every render and never stored on its own
type PricingBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}
