package http

import (
	"fmt"
	"net/http"
	"time"

	"Outreach/backend/go/internal/config"
	"Outreach/backend/go/pkg/circuitbreaker"
	"Outreach/backend/go/pkg/logger"
)

// Client wraps http.Client with an optional circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a Client. A nil breaker yields a plain client.
func NewClient(timeout time.Duration, breaker circuitbreaker.CircuitBreaker) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// NewClientFromConfig creates a Client whose breaker follows cfg.
func NewClientFromConfig(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	if !cfg.Enabled {
		return NewClient(timeout, nil), nil
	}
	breaker, err := createCircuitBreaker(cfg, logger.Discard())
	if err != nil {
		return nil, err
	}
	return NewClient(timeout, breaker), nil
}

// Do executes req. With a breaker, transport errors and 5xx responses count
// as failures; a 5xx response is still returned to the caller alongside the
// error so the body can be inspected.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var doErr error
		resp, doErr = c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return resp, err
	}
	return resp, nil
}
