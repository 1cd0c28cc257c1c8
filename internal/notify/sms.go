package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSConfig points at the external SMS gateway's HTTP API.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	SenderID   string
}

// SMSSender posts short-message requests to a gateway endpoint.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSSender(cfg SMSConfig) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSSender) send(ctx context.Context, template string, recipient Recipient, payload Payload) error {
	if recipient.Phone == "" {
		return fmt.Errorf("recipient has no phone number")
	}
	if s.cfg.GatewayURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	msg := render(template, recipient, payload)
	body, err := json.Marshal(map[string]string{
		"to":      recipient.Phone,
		"sender":  s.cfg.SenderID,
		"message": msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
