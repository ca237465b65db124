package domain

import "time"

type OrderRequest struct {
	UserID          string           `json:"userId"`
	RestaurantID    string           `json:"restaurantId,omitempty"`
	Lines           []CartLine       `json:"items"`
	Pricing         PricingBreakdown `json:"pricing"`
	DeliveryAddress string           `json:"deliveryAddress"`
	Phone           string           `json:"phone"`
}

type Order struct {
	OrderID         string           `json:"orderId"`
	UserID          string           `json:"userId"`
	RestaurantID    string           `json:"restaurantId,omitempty"`
	Status          string           `json:"status,omitempty"`
	Lines           []CartLine       `json:"items"`
	Pricing         PricingBreakdown `json:"pricing"`
	DeliveryAddress string           `json:"deliveryAddress,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Product is a catalog entry, used only to enrich cart lines for display
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RestaurantID string `json:"restaurantId,omitempty"`
	ImageRef     string `json:"image,omitempty"`
}
