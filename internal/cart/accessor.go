package cart

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"platoo/storefront/internal/client"
	"platoo/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Accessor owns the in-memory cart snapshot of one session and keeps it in
// step with the remote cart service.
//
// Callers address lines by local id; the cart service is addressed by product
// id. Every mutation takes a per-product sequence number before its request
// goes out, and a response is applied only while its number is still the
// latest issued for that product, so a slow response can never overwrite a
// newer one. No lock is held across remote calls.
type Accessor struct {
	cartClient client.CartClient

	mu       sync.Mutex
	snapshot domain.CartSnapshot
	seq      map[string]uint64 // productID -> latest issued mutation
	issued   uint64            // every load or mutation issued
}

func NewAccessor(cartClient client.CartClient) *Accessor {
	return &Accessor{
		cartClient: cartClient,
		seq:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the current cart
func (a *Accessor) Snapshot() domain.CartSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshot.Clone()
}

// Load replaces the snapshot with the remote cart of userID. A missing user id
// means there is nothing to load. On a remote failure the last known snapshot
// is kept and the error returned.
func (a *Accessor) Load(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	if userID == "" {
		log.Warn("⚠️ No user id available, nothing to load")
		return domain.CartSnapshot{}, nil
	}

	a.mu.Lock()
	a.issued++
	token := a.issued
	a.mu.Unlock()

	lines, err := a.cartClient.GetCart(ctx, userID)
	if err != nil {
		log.Errorf("❌ Failed to load cart for user %s: %v", userID, err)
		return a.Snapshot(), fmt.Errorf("failed to load cart: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Something newer went out while we waited; that one decides
	if token != a.issued {
		log.Debugf("Discarding stale cart load for user %s", userID)
		return a.snapshot.Clone(), nil
	}

	a.snapshot = domain.CartSnapshot{UserID: userID, Lines: lines}
	log.Debugf("Loaded cart for user %s with %d lines", userID, len(lines))

	return a.snapshot.Clone(), nil
}

// SetQuantity sends max(1, quantity) for the line and applies it locally once
// the cart service confirms. An unknown line id is a no-op.
func (a *Accessor) SetQuantity(ctx context.Context, lineID string, quantity int) error {
	quantity = domain.ClampQuantity(quantity)

	userID, productID, token, ok := a.begin(lineID)
	if !ok {
		log.Debugf("Line %s not in cart, nothing to update", lineID)
		return nil
	}

	if err := a.cartClient.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		log.Errorf("❌ Failed to update quantity of %s: %v", productID, err)
		return fmt.Errorf("failed to update quantity: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isLatest(productID, token) {
		log.Debugf("Discarding stale quantity response for %s", productID)
		return nil
	}

	if idx := a.snapshot.FindProduct(productID); idx >= 0 {
		a.snapshot.Lines[idx].Quantity = quantity
	}

	return nil
}

// ChangeQuantity adjusts a line by delta starting from the quantity this
// session last saw. Edits made elsewhere since the last load are not taken
// into account.
func (a *Accessor) ChangeQuantity(ctx context.Context, lineID string, delta int) error {
	a.mu.Lock()
	idx := a.snapshot.Find(lineID)
	if idx < 0 {
		a.mu.Unlock()
		log.Debugf("Line %s not in cart, nothing to change", lineID)
		return nil
	}
	current := a.snapshot.Lines[idx].Quantity
	a.mu.Unlock()

	return a.SetQuantity(ctx, lineID, current+delta)
}

// Remove deletes a line remotely and then locally. Removing a line that is
// already gone is a no-op.
func (a *Accessor) Remove(ctx context.Context, lineID string) error {
	userID, productID, token, ok := a.begin(lineID)
	if !ok {
		log.Debugf("Line %s not in cart, nothing to remove", lineID)
		return nil
	}

	if err := a.cartClient.RemoveItem(ctx, userID, productID); err != nil {
		if client.StatusCode(err) != http.StatusNotFound {
			log.Errorf("❌ Failed to remove %s from cart: %v", productID, err)
			return fmt.Errorf("failed to remove item: %w", err)
		}
		log.Debugf("Cart service no longer knows %s, treating as removed", productID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isLatest(productID, token) {
		log.Debugf("Discarding stale remove response for %s", productID)
		return nil
	}

	if idx := a.snapshot.FindProduct(productID); idx >= 0 {
		a.snapshot.Lines = append(a.snapshot.Lines[:idx], a.snapshot.Lines[idx+1:]...)
	}

	return nil
}

// Enrich fills in display names and images from the catalog for lines that
// lack them. Lookup failures leave the line as it is.
func (a *Accessor) Enrich(ctx context.Context, catalog client.CatalogClient, maxWorkers int) {
	snapshot := a.Snapshot()
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	var mu sync.Mutex
	products := make(map[string]*domain.Product)

	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)

	for _, line := range snapshot.Lines {
		if line.Name != "" && line.ImageRef != domain.PlaceholderImage {
			continue
		}

		g.Go(func() error {
			product, err := catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				log.Warnf("⚠️ Failed to look up product %s: %v", line.ProductID, err)
				return nil
			}

			mu.Lock()
			products[line.ProductID] = product
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(products) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.snapshot.Lines {
		line := &a.snapshot.Lines[i]
		product, ok := products[line.ProductID]
		if !ok {
			continue
		}
		if line.Name == "" {
			line.Name = product.Name
		}
		if line.ImageRef == domain.PlaceholderImage && product.ImageRef != "" {
			line.ImageRef = product.ImageRef
		}
	}
}

// begin resolves lineID and issues the next sequence number for its product
func (a *Accessor) begin(lineID string) (userID, productID string, token uint64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.snapshot.Find(lineID)
	if idx < 0 {
		return "", "", 0, false
	}

	productID = a.snapshot.Lines[idx].ProductID
	a.seq[productID]++
	a.issued++

	return a.snapshot.UserID, productID, a.seq[productID], true
}

func (a *Accessor) isLatest(productID string, token uint64) bool {
	return a.seq[productID] == token
}
