// Package catalog is a read-only HTTP client for the product catalog
// query service. It is consulted before a SKU enters a cart; the catalog
// itself is owned by the inventory boundary.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("product not found")

type Product struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	Discontinued bool   `json:"discontinued"`
}

// Client resolves SKUs against the catalog. Implementations must be
// safe for concurrent use.
type Client interface {
	Product(ctx context.Context, sku string) (Product, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPClient) Product(ctx context.Context, sku string) (Product, error) {
	endpoint := c.baseURL + "/v1/products/" + url.PathEscape(sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Product{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return Product{}, err
		}
		var p Product
		if err := json.Unmarshal(body, &p); err != nil {
			return Product{}, fmt.Errorf("catalog response: %w", err)
		}
		return p, nil
	case http.StatusNotFound:
		return Product{}, ErrNotFound
	default:
		return Product{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
}
