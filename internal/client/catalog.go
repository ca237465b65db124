package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"platoo/storefront/internal/config"
	"platoo/storefront/internal/domain"
)

type CatalogClient interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

type HTTPCatalogClient struct {
	*restClient
}

func NewCatalogClient(cfg config.ServicesConfig, httpCfg config.HTTPConfig) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		restClient: newRESTClient("catalog", cfg.CatalogURL, httpCfg),
	}
}

func (c *HTTPCatalogClient) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	path := fmt.Sprintf("/products/%s", url.PathEscape(productID))
	if err := c.call(ctx, "get product", http.MethodGet, path, nil, nil, &product); err != nil {
		return nil, err
	}

	if product.ID == "" {
		product.ID = productID
	}

	return &product, nil
}
