package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"platoo/storefront/internal/client"
	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/state"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	StateEmpty    State = iota // nothing persisted
	StateStaged                // payload written, order not placed yet
	StateConsumed              // order placed, confirmation not read back yet
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStaged:
		return "staged"
	case StateConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Notifier receives a change event after every transition
type Notifier interface {
	Publish(ctx context.Context, event domain.ChangeEvent) (string, error)
}

// Handoff carries a checkout from the cart page to order placement through
// a session-scoped Store.
type Handoff struct {
	store     state.Store
	sessionID string
	places    int32 // amounts are stored with exactly this many decimals
	notifier  Notifier
	now       func() time.Time
}

func NewHandoff(store state.Store, sessionID string, places int32, notifier Notifier) *Handoff {
	if places <= 0 {
		places = 2
	}

	return &Handoff{
		store:     store,
		sessionID: sessionID,
		places:    places,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (h *Handoff) State(ctx context.Context) (State, error) {
	_, staged, err := h.store.Get(ctx, KeyCartItems)
	if err != nil {
		return StateEmpty, err
	}
	if staged {
		return StateStaged, nil
	}

	_, placed, err := h.store.Get(ctx, KeyOrderID)
	if err != nil {
		return StateEmpty, err
	}
	if placed {
		return StateConsumed, nil
	}

	return StateEmpty, nil
}

// Stage writes the cart lines and pricing for the payment step, replacing
// whatever was staged before. An empty cart is rejected before anything is
// written.
func (h *Handoff) Stage(ctx context.Context, snapshot domain.CartSnapshot, pricing domain.PricingBreakdown, restaurantID string) (*domain.CheckoutPayload, error) {
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	pricing = domain.PricingBreakdown{
		Subtotal:    pricing.Subtotal.Round(h.places),
		DeliveryFee: pricing.DeliveryFee.Round(h.places),
		Tax:         pricing.Tax.Round(h.places),
		Total:       pricing.Total.Round(h.places),
	}

	payload := &domain.CheckoutPayload{
		Lines:         snapshot.Clone().Lines,
		Pricing:       pricing,
		RestaurantID:  restaurantID,
		SubmissionKey: uuid.NewString(),
		StagedAt:      h.now().UTC(),
	}

	lines, err := json.Marshal(payload.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cart items: %w", err)
	}

	values := map[string]string{
		KeyCartItems:     string(lines),
		KeySubtotal:      pricing.Subtotal.StringFixed(h.places),
		KeyDeliveryFee:   pricing.DeliveryFee.StringFixed(h.places),
		KeyTax:           pricing.Tax.StringFixed(h.places),
		KeyTotal:         pricing.Total.StringFixed(h.places),
		KeySubmissionKey: payload.SubmissionKey,
		KeyStagedAt:      payload.StagedAt.Format(time.RFC3339Nano),
	}
	if restaurantID != "" {
		values[KeyRestaurant] = restaurantID
	}

	// The previous stage goes first, so a failed write leaves nothing staged
	if err := h.store.Delete(ctx, restageKeys...); err != nil {
		return nil, fmt.Errorf("failed to clear previous checkout: %w", err)
	}
	if err := h.store.SetMany(ctx, values); err != nil {
		return nil, fmt.Errorf("failed to stage checkout: %w", err)
	}

	log.Infof("🛒 Staged checkout with %d lines, total %s", len(payload.Lines), pricing.Total)
	h.publish(ctx, domain.ChangeStaged, "")

	return payload, nil
}

// Payload reads back exactly what Stage wrote
func (h *Handoff) Payload(ctx context.Context) (*domain.CheckoutPayload, error) {
	raw, ok, err := h.store.Get(ctx, KeyCartItems)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged checkout: %w", err)
	}
	if !ok {
		return nil, ErrNothingStaged
	}

	payload := &domain.CheckoutPayload{}
	if err := json.Unmarshal([]byte(raw), &payload.Lines); err != nil {
		return nil, fmt.Errorf("%w: cart items: %v", ErrCorruptPayload, err)
	}

	amounts := []struct {
		key    string
		target *decimal.Decimal
	}{
		{KeySubtotal, &payload.Pricing.Subtotal},
		{KeyDeliveryFee, &payload.Pricing.DeliveryFee},
		{KeyTax, &payload.Pricing.Tax},
		{KeyTotal, &payload.Pricing.Total},
	}
	for _, amount := range amounts {
		value, err := h.required(ctx, amount.key)
		if err != nil {
			return nil, err
		}
		if *amount.target, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptPayload, amount.key, err)
		}
	}

	if payload.SubmissionKey, err = h.required(ctx, KeySubmissionKey); err != nil {
		return nil, err
	}

	stagedAt, err := h.required(ctx, KeyStagedAt)
	if err != nil {
		return nil, err
	}
	if payload.StagedAt, err = time.Parse(time.RFC3339Nano, stagedAt); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptPayload, KeyStagedAt, err)
	}

	if payload.RestaurantID, _, err = h.store.Get(ctx, KeyRestaurant); err != nil {
		return nil, fmt.Errorf("failed to read staged checkout: %w", err)
	}

	return payload, nil
}

// Submit places the staged order and returns its id with the payload that was
// sent. On failure the staged payload stays so the same submission can be
// retried; the submission key makes the retry safe on the order service side.
// On success the staged keys are cleared and the order id is kept for the
// confirmation read-back.
func (h *Handoff) Submit(ctx context.Context, orders client.OrderClient, userID, deliveryAddress, phone string) (string, *domain.CheckoutPayload, error) {
	if strings.TrimSpace(deliveryAddress) == "" || strings.TrimSpace(phone) == "" {
		return "", nil, ErrMissingDelivery
	}

	payload, err := h.Payload(ctx)
	if err != nil {
		return "", nil, err
	}

	req := domain.OrderRequest{
		UserID:          userID,
		RestaurantID:    payload.RestaurantID,
		Lines:           payload.Lines,
		Pricing:         payload.Pricing,
		DeliveryAddress: deliveryAddress,
		Phone:           phone,
	}

	orderID, err := orders.SubmitOrder(ctx, req, payload.SubmissionKey)
	if err != nil {
		log.Errorf("❌ Failed to submit order, staged checkout kept for retry: %v", err)
		return "", nil, fmt.Errorf("failed to submit order: %w", err)
	}

	if err := h.store.Set(ctx, KeyOrderID, orderID); err != nil {
		return orderID, payload, fmt.Errorf("order %s placed but failed to record it: %w", orderID, err)
	}
	if err := h.store.Delete(ctx, stagedKeys...); err != nil {
		return orderID, payload, fmt.Errorf("order %s placed but failed to clear staged checkout: %w", orderID, err)
	}

	log.Infof("✅ Order %s placed", orderID)
	h.publish(ctx, domain.ChangePlaced, orderID)

	return orderID, payload, nil
}

// Confirm reads the placed order back and finishes the handoff. If the
// lookup fails the order id stays so it can be tried again.
func (h *Handoff) Confirm(ctx context.Context, orders client.OrderClient) (*domain.Order, error) {
	orderID, ok, err := h.store.Get(ctx, KeyOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read order id: %w", err)
	}
	if !ok {
		return nil, ErrNoOrder
	}

	order, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		log.Errorf("❌ Failed to read back order %s: %v", orderID, err)
		return nil, fmt.Errorf("failed to read back order %s: %w", orderID, err)
	}

	// A checkout staged since the order was placed owns the restaurant key
	keys := []string{KeyOrderID}
	if _, staged, err := h.store.Get(ctx, KeyCartItems); err == nil && !staged {
		keys = append(keys, KeyRestaurant)
	}
	if err := h.store.Delete(ctx, keys...); err != nil {
		return order, fmt.Errorf("failed to clear confirmed order: %w", err)
	}

	h.publish(ctx, domain.ChangeConfirmed, orderID)
	return order, nil
}

// Cancel clears every checkout key, whatever the current state
func (h *Handoff) Cancel(ctx context.Context) error {
	if err := h.store.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("failed to cancel checkout: %w", err)
	}

	log.Info("🧹 Checkout cancelled")
	h.publish(ctx, domain.ChangeCancelled, "")
	return nil
}

func (h *Handoff) required(ctx context.Context, key string) (string, error) {
	value, ok, err := h.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read staged checkout: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s missing", ErrCorruptPayload, key)
	}
	return value, nil
}

func (h *Handoff) publish(ctx context.Context, action, orderID string) {
	if h.notifier == nil {
		return
	}

	event := domain.ChangeEvent{
		SessionID: h.sessionID,
		Action:    action,
		OrderID:   orderID,
		At:        h.now().UTC(),
	}
	if _, err := h.notifier.Publish(ctx, event); err != nil {
		log.Warnf("⚠️ Failed to publish %s event: %v", action, err)
	}
}

// IsPrecondition reports whether err rejected an operation before any remote call
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrNothingStaged) ||
		errors.Is(err, ErrNoOrder) ||
		errors.Is(err, ErrMissingDelivery)
}
