package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kikichoice/storefront-backend/pkg/logger"
	"github.com/sony/gobreaker/v2"
)

// maxErrorBody caps how much of an error response is kept on APIError.
const maxErrorBody = 512

// Client talks to the external product API.
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new product API client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg := config.withDefaults()

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "catalog",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			return !isBreakerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
	}, nil
}

// ListProducts returns every product in the shop.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	body, err := c.get(ctx, "/v1/products")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var env productsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products response: %w", err)
	}
	return env.Data.Products, nil
}

// HotSelling returns the homepage product list.
func (c *Client) HotSelling(ctx context.Context) ([]Product, error) {
	body, err := c.get(ctx, "/v1/products/hot-selling")
	if err != nil {
		return nil, fmt.Errorf("failed to list hot selling products: %w", err)
	}

	var env productsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hot selling response: %w", err)
	}
	return env.Data.Products, nil
}

// GetProduct returns one product. A 404 yields ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, uuid string) (*ProductDetail, error) {
	body, err := c.get(ctx, "/v1/products/"+url.PathEscape(uuid))
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", uuid, err)
	}

	var env detailEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product response: %w", err)
	}
	return &env.Data, nil
}

// ListVariants returns the purchasable variants of a product.
func (c *Client) ListVariants(ctx context.Context, uuid string) ([]Variant, error) {
	body, err := c.get(ctx, "/v1/products/"+url.PathEscape(uuid)+"/variants")
	if err != nil {
		return nil, fmt.Errorf("failed to list variants of %s: %w", uuid, err)
	}

	var env variantsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants response: %w", err)
	}
	return env.Data.Variants, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, err
}

// doRequest performs a GET against the product API
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.config.BaseURL + path

	logger.Debug("Requesting product API", map[string]interface{}{
		"url": endpoint,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrNetwork, errCallerGone, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w: failed to read response body: %w", ErrNetwork, errCallerGone, err)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProductNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		logger.Warn("Product API returned error status", map[string]interface{}{
			"url":    endpoint,
			"status": resp.StatusCode,
		})
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
