package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"platoo/storefront/internal/config"
	"platoo/storefront/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type CartClient interface {
	GetCart(ctx context.Context, userID string) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
}

type HTTPCartClient struct {
	*restClient
}

func NewCartClient(cfg config.ServicesConfig, httpCfg config.HTTPConfig) *HTTPCartClient {
	return &HTTPCartClient{
		restClient: newRESTClient("cart", cfg.CartURL, httpCfg),
	}
}

type cartItemDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

type cartResponseDTO struct {
	Items []cartItemDTO `json:"items"`
}

type cartMutationDTO struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

func (c *HTTPCartClient) GetCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var resp cartResponseDTO
	path := fmt.Sprintf("/cart/%s", url.PathEscape(userID))
	if err := c.call(ctx, "get cart", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(resp.Items))
	for _, item := range resp.Items {
		line, ok := item.toDomain()
		if !ok {
			log.Warnf("⚠️ Skipping cart item %q without product id", item.ID)
			continue
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func (c *HTTPCartClient) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	body := cartMutationDTO{
		UserID:    userID,
		ProductID: productID,
		Quantity:  domain.ClampQuantity(quantity),
	}
	return c.call(ctx, "update cart quantity", http.MethodPost, "/cart/update", nil, body, nil)
}

func (c *HTTPCartClient) RemoveItem(ctx context.Context, userID, productID string) error {
	body := cartMutationDTO{
		UserID:    userID,
		ProductID: productID,
	}
	return c.call(ctx, "remove cart item", http.MethodPost, "/cart/remove", nil, body, nil)
}

func (d cartItemDTO) toDomain() (domain.CartLine, bool) {
	if d.ProductID == "" {
		return domain.CartLine{}, false
	}

	id := d.ID
	if id == "" {
		id = d.ProductID
	}

	image := d.Image
	if image == "" {
		image = domain.PlaceholderImage
	}

	return domain.CartLine{
		ID:        id,
		ProductID: d.ProductID,
		Name:      d.Name,
		UnitPrice: d.Price,
		Quantity:  domain.ClampQuantity(d.Quantity),
		ImageRef:  image,
	}, true
}
