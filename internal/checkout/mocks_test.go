package checkout

import (
	"context"
	"errors"
	"sync"

	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/state"
)

// failingStore is a MemoryStore whose writes can be made to fail
type failingStore struct {
	*state.MemoryStore
	failSetMany bool
	failDelete  bool
}

func (s *failingStore) SetMany(ctx context.Context, values map[string]string) error {
	if s.failSetMany {
		return errors.New("write refused")
	}
	return s.MemoryStore.SetMany(ctx, values)
}

func (s *failingStore) Delete(ctx context.Context, keys ...string) error {
	if s.failDelete {
		return errors.New("delete refused")
	}
	return s.MemoryStore.Delete(ctx, keys...)
}

// FakeOrderClient records submissions and answers from its fields
type FakeOrderClient struct {
	mu        sync.Mutex
	Submitted []domain.OrderRequest
	Keys      []string
	OrderID   string
	SubmitErr error
	Order     *domain.Order
	GetErr    error
}

func (f *FakeOrderClient) SubmitOrder(_ context.Context, req domain.OrderRequest, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Submitted = append(f.Submitted, req)
	f.Keys = append(f.Keys, idempotencyKey)
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return f.OrderID, nil
}

func (f *FakeOrderClient) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	if f.Order != nil {
		return f.Order, nil
	}
	return &domain.Order{OrderID: orderID, Status: "pending"}, nil
}

type recordingNotifier struct {
	events []domain.ChangeEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event domain.ChangeEvent) (string, error) {
	n.events = append(n.events, event)
	return "1-0", n.err
}

func (n *recordingNotifier) actions() []string {
	actions := make([]string, len(n.events))
	for i, event := range n.events {
		actions[i] = event.Action
	}
	return actions
}
