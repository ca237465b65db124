package pricing

import (
	"fmt"

	"platoo/storefront/internal/config"
	"platoo/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Calculator derives checkout pricing from a cart snapshot. It holds no state
// beyond its constants and never refuses an empty cart; callers disable
// checkout for that case.
type Calculator struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
	Places      int32
}

func NewCalculator(cfg config.PricingConfig) (*Calculator, error) {
	fee, err := decimal.NewFromString(cfg.DeliveryFee)
	if err != nil {
		return nil, fmt.Errorf("invalid delivery fee %q: %w", cfg.DeliveryFee, err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must not be negative, got %s", fee)
	}

	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative, got %s", rate)
	}

	places := cfg.Places
	if places <= 0 {
		places = 2
	}

	return &Calculator{
		DeliveryFee: fee,
		TaxRate:     rate,
		Places:      places,
	}, nil
}

// Subtotal sums unit price times quantity over every line
func (c *Calculator) Subtotal(snapshot domain.CartSnapshot) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range snapshot.Lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	return subtotal
}

// Tax is subtotal times the configured rate, rounded to the configured places
func (c *Calculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.TaxRate).Round(c.Places)
}

func (c *Calculator) Breakdown(snapshot domain.CartSnapshot) domain.PricingBreakdown {
	subtotal := c.Subtotal(snapshot)
	tax := c.Tax(subtotal)

	return domain.PricingBreakdown{
		Subtotal:    subtotal,
		DeliveryFee: c.DeliveryFee,
		Tax:         tax,
		Total:       subtotal.Add(c.DeliveryFee).Add(tax),
	}
}
