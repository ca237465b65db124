package cart

import (
	"context"
	"sync"

	"platoo/storefront/internal/client"
	"platoo/storefront/internal/domain"
)

type updateCall struct {
	UserID    string
	ProductID string
	Quantity  int
}

// FakeCartClient is an in-memory cart service
type FakeCartClient struct {
	mu        sync.Mutex
	carts     map[string][]domain.CartLine
	updates   []updateCall
	removes   []string
	gets      int
	GetErr    error
	UpdateErr error
	RemoveErr error

	// gates block UpdateQuantity for the given quantity until closed
	gates map[int]chan struct{}
	// loadGate blocks GetCart until closed
	loadGate chan struct{}
}

func NewFakeCartClient() *FakeCartClient {
	return &FakeCartClient{
		carts: make(map[string][]domain.CartLine),
		gates: make(map[int]chan struct{}),
	}
}

func (f *FakeCartClient) GetCart(_ context.Context, userID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	f.gets++
	gate := f.loadGate
	err := f.GetErr
	lines := make([]domain.CartLine, len(f.carts[userID]))
	copy(lines, f.carts[userID])
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (f *FakeCartClient) UpdateQuantity(_ context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	f.updates = append(f.updates, updateCall{UserID: userID, ProductID: productID, Quantity: quantity})
	gate := f.gates[quantity]
	err := f.UpdateErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, line := range f.carts[userID] {
		if line.ProductID == productID {
			f.carts[userID][i].Quantity = quantity
		}
	}
	return nil
}

func (f *FakeCartClient) RemoveItem(_ context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removes = append(f.removes, productID)
	if f.RemoveErr != nil {
		return f.RemoveErr
	}

	lines := f.carts[userID][:0]
	for _, line := range f.carts[userID] {
		if line.ProductID != productID {
			lines = append(lines, line)
		}
	}
	f.carts[userID] = lines
	return nil
}

func (f *FakeCartClient) Updates() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

func (f *FakeCartClient) Gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// FakeCatalogClient serves products from a map
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
