package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/leonardoxyz/femisse-stock-ledger/pkg/httpclient"
)

// Client calls the order service's cancellation endpoint. The circuit
// breaker keeps the sweeper from hammering a down order service; once the
// breaker opens, calls fail fast and the sweeper falls back to direct
// stock release.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// New creates an order service client.
func New(baseURL string, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.DefaultConfig())
	breaker := httpclient.NewCircuitBreakerClient(
		base,
		httpclient.DefaultCircuitBreakerConfig("order-service"),
		logger,
	)

	return &Client{
		baseURL: baseURL,
		http:    breaker,
		logger:  logger,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder asks the order service to cancel an order. The order service
// owns the full cancellation flow, stock release included.
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) error {
	payload, err := json.Marshal(cancelRequest{Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/orders/%s/cancel", c.baseURL, orderID)
	resp, err := c.http.Post(ctx, url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cancel order %s: unexpected status %d: %s", orderID, resp.StatusCode, string(body))
	}

	c.logger.DebugContext(ctx, "order cancelled via order service",
		slog.String("order_id", orderID),
	)
	return nil
}
