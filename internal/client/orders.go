package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"platoo/storefront/internal/config"
	"platoo/storefront/internal/domain"
)

type OrderClient interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (string, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type HTTPOrderClient struct {
	*restClient
}

func NewOrderClient(cfg config.ServicesConfig, httpCfg config.HTTPConfig) *HTTPOrderClient {
	return &HTTPOrderClient{
		restClient: newRESTClient("order", cfg.OrderURL, httpCfg),
	}
}

type orderEnvelopeDTO struct {
	Order *domain.Order `json:"order"`
}

// Order detail comes either wrapped in {"order": ...} or bare
type orderDetailDTO struct {
	Wrapped *domain.Order `json:"order"`
	domain.Order
}

func (c *HTTPOrderClient) SubmitOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (string, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var resp orderEnvelopeDTO
	if err := c.call(ctx, "submit order", http.MethodPost, "/orders", headers, req, &resp); err != nil {
		return "", err
	}

	if resp.Order == nil || resp.Order.OrderID == "" {
		return "", &Error{Op: "submit order", Kind: KindDecode, Err: fmt.Errorf("response carries no order id")}
	}

	return resp.Order.OrderID, nil
}

func (c *HTTPOrderClient) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	path := fmt.Sprintf("/orders/%s", url.PathEscape(orderID))

	var raw orderDetailDTO
	if err := c.call(ctx, "get order", http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}

	order := raw.Wrapped
	if order == nil {
		order = &raw.Order
	}
	if order.OrderID == "" {
		order.OrderID = orderID
	}

	return order, nil
}
