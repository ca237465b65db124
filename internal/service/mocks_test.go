package service

import (
	"context"
	"sync"
	"time"

	"platoo/storefront/internal/client"
	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/queue"
)

type FakeCartClient struct {
	mu        sync.Mutex
	Lines     []domain.CartLine
	GetErr    error
	UpdateErr error
}

func (f *FakeCartClient) GetCart(_ context.Context, _ string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return append([]domain.CartLine(nil), f.Lines...), nil
}

func (f *FakeCartClient) UpdateQuantity(_ context.Context, _ string, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i := range f.Lines {
		if f.Lines[i].ProductID == productID {
			f.Lines[i].Quantity = quantity
		}
	}
	return nil
}

func (f *FakeCartClient) RemoveItem(_ context.Context, _ string, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.Lines[:0]
	for _, line := range f.Lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	f.Lines = kept
	return nil
}

type FakeOrderClient struct {
	OrderID   string
	SubmitErr error
	Requests  []domain.OrderRequest
	OnSubmit  func() // runs while the submission is in flight
}

func (f *FakeOrderClient) SubmitOrder(_ context.Context, req domain.OrderRequest, _ string) (string, error) {
	f.Requests = append(f.Requests, req)
	if f.OnSubmit != nil {
		f.OnSubmit()
	}
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return f.OrderID, nil
}

func (f *FakeOrderClient) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	return &domain.Order{OrderID: orderID, Status: "pending"}, nil
}

type FakeCatalogClient struct {
	Products map[string]*domain.Product
}

func (f *FakeCatalogClient) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	product, ok := f.Products[productID]
	if !ok {
		return nil, &client.Error{Op: "get product", Kind: client.KindStatus, StatusCode: 404}
	}
	return product, nil
}

// FakeHistory keeps orders keyed by id like the placed_orders table
type FakeHistory struct {
	Saved   []domain.Order
	SaveErr error
}

func (f *FakeHistory) SaveOrder(_ context.Context, order *domain.Order) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	for i := range f.Saved {
		if f.Saved[i].OrderID == order.OrderID {
			f.Saved[i] = *order
			return nil
		}
	}
	f.Saved = append(f.Saved, *order)
	return nil
}

func (f *FakeHistory) UpdateStatus(_ context.Context, orderID, status string) (bool, error) {
	for i := range f.Saved {
		if f.Saved[i].OrderID == orderID {
			f.Saved[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeHistory) ListOrders(_ context.Context, userID string, _ int) ([]domain.Order, error) {
	var orders []domain.Order
	for _, order := range f.Saved {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// FakeFeed hands out its queued messages on the first read
type FakeFeed struct {
	Messages []queue.Message
	Newest   string
	lastIDs  []string
}

func (f *FakeFeed) LastID(_ context.Context) (string, error) {
	return f.Newest, nil
}

func (f *FakeFeed) Publish(_ context.Context, event domain.ChangeEvent) (string, error) {
	f.Messages = append(f.Messages, queue.Message{ID: event.Action, Event: event})
	return event.Action, nil
}

func (f *FakeFeed) Read(ctx context.Context, lastID string, _ time.Duration) ([]queue.Message, error) {
	f.lastIDs = append(f.lastIDs, lastID)
	if len(f.lastIDs) > 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.Messages, nil
}
