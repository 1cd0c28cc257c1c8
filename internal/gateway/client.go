// Package gateway talks to the external payment gateway's transaction
// lookup API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fabworks/internal/service"
)

type Config struct {
	BaseURL string // e.g. https://pay.example.com/v1
	APIKey  string
}

// Client implements service.GatewayVerifier over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify asks the gateway whether a transaction settled. A non-2xx
// response or malformed body is a lookup error, not an invalid
// transaction.
func (c *Client) Verify(ctx context.Context, gatewayName, transactionID string) (service.GatewayResult, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s?gateway=%s",
		c.cfg.BaseURL, url.PathEscape(transactionID), url.QueryEscape(gatewayName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return service.GatewayResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return service.GatewayResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return service.GatewayResult{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string  `json:"status"`
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return service.GatewayResult{}, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return service.GatewayResult{
		Valid:  body.Status == "settled",
		Amount: body.Amount,
		Reason: body.Reason,
	}, nil
}
