// Package yookassa is a minimal client for the YooKassa payments API (v3).
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"

	"readingbot/pkg/config"
)

var Module = fx.Module("yookassa",
	fx.Provide(New),
)

const (
	ConfirmationRedirect = "redirect"

	maxDescriptionLen = 128
)

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type PaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// APIError is the error body returned for non-2xx responses.
type APIError struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yookassa: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

type Client struct {
	http      *http.Client
	baseURL   string
	shopID    string
	secretKey string
	returnURL string
}

func New(cfg *config.Config) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   cfg.YooKassa.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   strings.TrimRight(cfg.YooKassa.APIURL, "/"),
		shopID:    cfg.YooKassa.ShopID,
		secretKey: cfg.YooKassa.SecretKey,
		returnURL: cfg.YooKassa.ReturnURL,
	}
}

// ReturnURL is where the payer is sent back after confirmation.
func (c *Client) ReturnURL() string { return c.returnURL }

// CreatePayment opens a payment. Requests repeated with the same
// idempotenceKey return the payment created first.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest, idempotenceKey string) (*Payment, error) {
	if len([]rune(req.Description)) > maxDescriptionLen {
		req.Description = string([]rune(req.Description)[:maxDescriptionLen])
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out Payment
	if err := c.do(ctx, http.MethodPost, "/payments", body, idempotenceKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotenceKey string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yookassa: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Description = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("yookassa: decode response: %w", err)
	}
	return nil
}
