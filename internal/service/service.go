package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"platoo/storefront/internal/cart"
	"platoo/storefront/internal/checkout"
	"platoo/storefront/internal/client"
	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/pricing"
	"platoo/storefront/internal/queue"
	"platoo/storefront/internal/repository"

	log "github.com/sirupsen/logrus"
)

var ErrNoFeed = errors.New("change feed is not configured")

// Service runs the cart and checkout flow of one user session
type Service struct {
	userID           string
	accessor         *cart.Accessor
	calculator       *pricing.Calculator
	handoff          *checkout.Handoff
	orders           client.OrderClient
	catalog          client.CatalogClient
	history          repository.OrderRepository
	feed             queue.ChangeFeed
	maxEnrichWorkers int
}

// Options carries the collaborators that may be absent
type Options struct {
	Catalog          client.CatalogClient
	History          repository.OrderRepository
	Feed             queue.ChangeFeed
	MaxEnrichWorkers int
}

func NewService(
	userID string,
	accessor *cart.Accessor,
	calculator *pricing.Calculator,
	handoff *checkout.Handoff,
	orders client.OrderClient,
	opts Options,
) *Service {
	return &Service{
		userID:           userID,
		accessor:         accessor,
		calculator:       calculator,
		handoff:          handoff,
		orders:           orders,
		catalog:          opts.Catalog,
		history:          opts.History,
		feed:             opts.Feed,
		maxEnrichWorkers: opts.MaxEnrichWorkers,
	}
}

// LoadCart fetches the remote cart and fills display gaps from the catalog.
// On failure the last known cart is returned along with the error.
func (s *Service) LoadCart(ctx context.Context) (domain.CartSnapshot, error) {
	if _, err := s.accessor.Load(ctx, s.userID); err != nil {
		return s.accessor.Snapshot(), err
	}

	if s.catalog != nil {
		s.accessor.Enrich(ctx, s.catalog, s.maxEnrichWorkers)
	}

	snapshot := s.accessor.Snapshot()
	log.Infof("🛒 Cart loaded: %d lines, %d items", len(snapshot.Lines), snapshot.ItemCount())
	return snapshot, nil
}

func (s *Service) SetQuantity(ctx context.Context, lineID string, quantity int) (domain.CartSnapshot, error) {
	if err := s.accessor.SetQuantity(ctx, lineID, quantity); err != nil {
		return s.accessor.Snapshot(), err
	}
	return s.accessor.Snapshot(), nil
}

func (s *Service) ChangeQuantity(ctx context.Context, lineID string, delta int) (domain.CartSnapshot, error) {
	if err := s.accessor.ChangeQuantity(ctx, lineID, delta); err != nil {
		return s.accessor.Snapshot(), err
	}
	return s.accessor.Snapshot(), nil
}

func (s *Service) RemoveItem(ctx context.Context, lineID string) (domain.CartSnapshot, error) {
	if err := s.accessor.Remove(ctx, lineID); err != nil {
		return s.accessor.Snapshot(), err
	}
	return s.accessor.Snapshot(), nil
}

// Quote prices the current cart
func (s *Service) Quote() (domain.CartSnapshot, domain.PricingBreakdown) {
	snapshot := s.accessor.Snapshot()
	return snapshot, s.calculator.Breakdown(snapshot)
}

// ProceedToCheckout stages the current cart and its pricing for the payment step
func (s *Service) ProceedToCheckout(ctx context.Context, restaurantID string) (*domain.CheckoutPayload, error) {
	snapshot, breakdown := s.Quote()

	payload, err := s.handoff.Stage(ctx, snapshot, breakdown, restaurantID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			log.Warn("⚠️ Cart is empty, checkout not staged")
		}
		return nil, err
	}
	return payload, nil
}

// PlaceOrder submits the staged checkout. A failed submission leaves it staged
// so PlaceOrder can simply be called again.
func (s *Service) PlaceOrder(ctx context.Context, deliveryAddress, phone string) (string, error) {
	orderID, payload, err := s.handoff.Submit(ctx, s.orders, s.userID, deliveryAddress, phone)
	if err != nil {
		return orderID, err
	}

	s.record(ctx, &domain.Order{
		OrderID:         orderID,
		UserID:          s.userID,
		RestaurantID:    payload.RestaurantID,
		Status:          "placed",
		Lines:           payload.Lines,
		Pricing:         payload.Pricing,
		DeliveryAddress: deliveryAddress,
		Phone:           phone,
		CreatedAt:       time.Now().UTC(),
	})

	return orderID, nil
}

// ConfirmOrder reads the placed order back from the order service. The
// history record written at placement keeps its contents; only the status
// reported by the order service is taken over.
func (s *Service) ConfirmOrder(ctx context.Context) (*domain.Order, error) {
	order, err := s.handoff.Confirm(ctx, s.orders)
	if err != nil {
		return nil, err
	}

	if s.history != nil && order.Status != "" {
		known, err := s.history.UpdateStatus(ctx, order.OrderID, order.Status)
		switch {
		case err != nil:
			log.Warnf("⚠️ Failed to update order %s in history: %v", order.OrderID, err)
		case !known:
			log.Debugf("Order %s was not recorded at placement, history left as is", order.OrderID)
		}
	}

	log.Infof("✅ Order %s confirmed, status %q", order.OrderID, order.Status)
	return order, nil
}

func (s *Service) CancelCheckout(ctx context.Context) error {
	return s.handoff.Cancel(ctx)
}

func (s *Service) CheckoutState(ctx context.Context) (checkout.State, error) {
	return s.handoff.State(ctx)
}

// OrderHistory lists orders placed from this storefront, newest first. Without
// a history database there is nothing to list.
func (s *Service) OrderHistory(ctx context.Context, limit int) ([]domain.Order, error) {
	if s.history == nil {
		log.Warn("⚠️ Order history is disabled")
		return nil, nil
	}
	return s.history.ListOrders(ctx, s.userID, limit)
}

// Watch hands every checkout change event after lastID to handle until ctx is
// done. An empty lastID or "$" starts from the newest event.
func (s *Service) Watch(ctx context.Context, lastID string, handle func(queue.Message)) error {
	if s.feed == nil {
		return ErrNoFeed
	}

	// "$" would be re-evaluated on every read and miss events published in between
	if lastID == "" || lastID == "$" {
		id, err := s.feed.LastID(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch checkout changes: %w", err)
		}
		lastID = id
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := s.feed.Read(ctx, lastID, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to watch checkout changes: %w", err)
		}

		for _, msg := range messages {
			handle(msg)
			lastID = msg.ID
		}
	}
}

// record keeps a placed order in the local history. It never fails the order.
func (s *Service) record(ctx context.Context, order *domain.Order) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveOrder(ctx, order); err != nil {
		log.Warnf("⚠️ Failed to record order %s in history: %v", order.OrderID, err)
	}
}
