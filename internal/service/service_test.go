package service

import (
	"context"
	"errors"
	"testing"

	"platoo/storefront/internal/cart"
	"platoo/storefront/internal/checkout"
	"platoo/storefront/internal/client"
	"platoo/storefront/internal/config"
	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/pricing"
	"platoo/storefront/internal/queue"
	"platoo/storefront/internal/state"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *Service
	carts   *FakeCartClient
	orders  *FakeOrderClient
	history *FakeHistory
	store   *state.MemoryStore
}

func newFixture(t *testing.T, lines ...domain.CartLine) *fixture {
	t.Helper()

	calculator, err := pricing.NewCalculator(config.PricingConfig{DeliveryFee: "300", TaxRate: "0.08", Places: 2})
	require.NoError(t, err)

	f := &fixture{
		carts:   &FakeCartClient{Lines: lines},
		orders:  &FakeOrderClient{OrderID: "ORD-42"},
		history: &FakeHistory{},
		store:   state.NewMemoryStore(),
	}
	handoff := checkout.NewHandoff(f.store, "sess", 2, nil)
	f.service = NewService("user-1", cart.NewAccessor(f.carts), calculator, handoff, f.orders, Options{
		Catalog: &FakeCatalogClient{Products: map[string]*domain.Product{
			"P2": {ID: "P2", Name: "Spring Rolls", ImageRef: "/img/p2.png"},
		}},
		History:          f.history,
		MaxEnrichWorkers: 2,
	})
	return f
}

func sampleLines() []domain.CartLine {
	return []domain.CartLine{
		{ID: "L1", ProductID: "P1", Name: "Pad Thai", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2, ImageRef: "/img/p1.png"},
		{ID: "L2", ProductID: "P2", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1, ImageRef: domain.PlaceholderImage},
	}
}

func TestLoadCart_EnrichesMissingDetails(t *testing.T) {
	f := newFixture(t, sampleLines()...)

	snapshot, err := f.service.LoadCart(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 2)
	assert.Equal(t, "Spring Rolls", snapshot.Lines[1].Name)
	assert.Equal(t, "/img/p2.png", snapshot.Lines[1].ImageRef)
}

func TestLoadCart_FailureKeepsLastKnownCart(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()

	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)

	f.carts.GetErr = &client.Error{Op: "get cart", Kind: client.KindTransport, Err: errors.New("connection refused")}
	snapshot, err := f.service.LoadCart(ctx)
	require.Error(t, err)
	assert.Len(t, snapshot.Lines, 2)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	_, err := f.service.LoadCart(context.Background())
	require.NoError(t, err)

	_, breakdown := f.service.Quote()
	assert.True(t, breakdown.Subtotal.Equal(decimal.RequireFromString("25")))
	assert.True(t, breakdown.Tax.Equal(decimal.RequireFromString("2")))
	assert.True(t, breakdown.Total.Equal(decimal.RequireFromString("327")))
}

func TestQuantityChangesReprice(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)

	snapshot, err := f.service.SetQuantity(ctx, "L1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Lines[0].Quantity)

	snapshot, err = f.service.ChangeQuantity(ctx, "L2", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Lines[1].Quantity)

	_, breakdown := f.service.Quote()
	assert.True(t, breakdown.Subtotal.Equal(decimal.RequireFromString("25")))

	snapshot, err = f.service.RemoveItem(ctx, "L2")
	require.NoError(t, err)
	assert.Len(t, snapshot.Lines, 1)
}

func TestProceedToCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)

	_, err = f.service.ProceedToCheckout(ctx, "R1")
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, 0, f.store.Len())
}

func TestCheckoutFlow_RecordsHistory(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)

	payload, err := f.service.ProceedToCheckout(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, payload.Pricing.Total.Equal(decimal.RequireFromString("327")))

	f.orders.SubmitErr = &client.Error{Op: "submit order", Kind: client.KindStatus, StatusCode: 500}
	_, err = f.service.PlaceOrder(ctx, "12 Baker St", "555-0100")
	require.Error(t, err)
	assert.Empty(t, f.history.Saved)

	st, err := f.service.CheckoutState(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateStaged, st)

	f.orders.SubmitErr = nil
	orderID, err := f.service.PlaceOrder(ctx, "12 Baker St", "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", orderID)
	require.Len(t, f.history.Saved, 1)
	assert.Equal(t, "placed", f.history.Saved[0].Status)
	assert.Equal(t, "R1", f.history.Saved[0].RestaurantID)

	order, err := f.service.ConfirmOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", order.OrderID)

	history, err := f.service.OrderHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pending", history[0].Status, "status taken from the order service")
	assert.True(t, history[0].Pricing.Total.Equal(decimal.RequireFromString("327")), "contents survive confirmation")
	assert.Len(t, history[0].Lines, 2)
	assert.Equal(t, "R1", history[0].RestaurantID)
	assert.Equal(t, "12 Baker St", history[0].DeliveryAddress)

	st, err = f.service.CheckoutState(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateEmpty, st)
}

func TestPlaceOrder_HistoryFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)
	_, err = f.service.ProceedToCheckout(ctx, "")
	require.NoError(t, err)

	f.history.SaveErr = errors.New("db down")
	orderID, err := f.service.PlaceOrder(ctx, "addr", "phone")
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", orderID)
}

func TestCancelCheckout(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)
	_, err = f.service.ProceedToCheckout(ctx, "R1")
	require.NoError(t, err)

	require.NoError(t, f.service.CancelCheckout(ctx))
	assert.Equal(t, 0, f.store.Len())

	_, err = f.service.PlaceOrder(ctx, "addr", "phone")
	assert.ErrorIs(t, err, checkout.ErrNothingStaged)
}

func TestWatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.LoadCart(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.Watch(context.Background(), "$", func(queue.Message) {}), ErrNoFeed)

	feed := &FakeFeed{Newest: "0-5", Messages: []queue.Message{
		{ID: "1-0", Event: domain.ChangeEvent{SessionID: "sess", Action: domain.ChangeStaged}},
		{ID: "2-0", Event: domain.ChangeEvent{SessionID: "sess", Action: domain.ChangeCancelled}},
	}}
	f.service.feed = feed

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	err = f.service.Watch(ctx, "$", func(msg queue.Message) {
		seen = append(seen, msg.Event.Action)
		if len(seen) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.ChangeStaged, domain.ChangeCancelled}, seen)
	assert.Equal(t, []string{"0-5"}, feed.lastIDs, "reads continue from a concrete id, never from $")
}

func TestPlaceOrder_RecordsWhatWasSubmitted(t *testing.T) {
	f := newFixture(t, sampleLines()...)
	ctx := context.Background()
	_, err := f.service.LoadCart(ctx)
	require.NoError(t, err)
	_, err = f.service.ProceedToCheckout(ctx, "R1")
	require.NoError(t, err)

	// another process restages the same session while the order is in flight
	other := checkout.NewHandoff(f.store, "sess", 2, nil)
	f.orders.OnSubmit = func() {
		_, err := other.Stage(ctx, domain.CartSnapshot{
			UserID: "user-1",
			Lines:  []domain.CartLine{{ID: "L9", ProductID: "P9", UnitPrice: decimal.RequireFromString("1"), Quantity: 1}},
		}, domain.PricingBreakdown{Total: decimal.RequireFromString("301.08")}, "R9")
		require.NoError(t, err)
	}

	_, err = f.service.PlaceOrder(ctx, "12 Baker St", "555-0100")
	require.NoError(t, err)

	require.Len(t, f.orders.Requests, 1)
	require.Len(t, f.history.Saved, 1)
	recorded := f.history.Saved[0]
	assert.Equal(t, f.orders.Requests[0].RestaurantID, recorded.RestaurantID)
	assert.True(t, f.orders.Requests[0].Pricing.Total.Equal(recorded.Pricing.Total))
	assert.Equal(t, "R1", recorded.RestaurantID)
	assert.Len(t, recorded.Lines, 2)
}
