package checkout

// Storage key names as written by the web storefront
const (
	KeyCartItems     = "cartItems"
	KeySubtotal      = "subtotal"
	KeyDeliveryFee   = "deliveryFee"
	KeyTax           = "tax"
	KeyTotal         = "total"
	KeyRestaurant    = "selectedRestaurant"
	KeyOrderID       = "orderId"
	KeySubmissionKey = "submissionKey"
	KeyStagedAt      = "stagedAt"
)

// stagedKeys are cleared once the order is placed
var stagedKeys = []string{
	KeyCartItems,
	KeySubtotal,
	KeyDeliveryFee,
	KeyTax,
	KeyTotal,
	KeySubmissionKey,
	KeyStagedAt,
}

// restageKeys are cleared before a new stage is written
var restageKeys = append(append([]string{}, stagedKeys...), KeyRestaurant)

var allKeys = append(append([]string{}, stagedKeys...), KeyRestaurant, KeyOrderID)
