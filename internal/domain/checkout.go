package domain

import "time"

// CheckoutPayload is what "proceed to checkout" hands to the payment step
type CheckoutPayload struct {
	Lines         []CartLine       `json:"lines"`
	Pricing       PricingBreakdown `json:"pricing"`
	RestaurantID  string           `json:"restaurantId,omitempty"`
	SubmissionKey string           `json:"submissionKey"` // Sent as Idempotency-Key on every submit attempt
	StagedAt      time.Time        `json:"stagedAt"`
}

// ChangeEvent describes a transition of a session's checkout storage
type ChangeEvent struct {
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"` // staged, placed, confirmed, cancelled
	OrderID   string    `json:"orderId,omitempty"`
	At        time.Time `json:"at"`
}

const (
	ChangeStaged    = "staged"
	ChangePlaced    = "placed"
	ChangeConfirmed = "confirmed"
	ChangeCancelled = "cancelled"
)
