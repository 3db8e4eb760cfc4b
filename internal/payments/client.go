// Package payments talks to the hosted createBookingPayment function that
// issues a payment link and messages it to the customer.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no function URL is set (demo mode).
var ErrNotConfigured = errors.New("payments: function url not configured")

// LinkRequest identifies the booking a link is issued for.
type LinkRequest struct {
	BookingID     string `json:"bookingId"`
	CustomerPhone string `json:"customerPhone"`
}

// Client wraps calls to the payment function.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient constructs a client. An empty url yields ErrNotConfigured on every call.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}
}

type callableRequest struct {
	Data LinkRequest `json:"data"`
}

type callableResponse struct {
	Result *struct {
		PaymentLink string `json:"paymentLink"`
	} `json:"result"`
	Error *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateLink asks the function for a payment link and returns it.
func (c *Client) CreateLink(ctx context.Context, req LinkRequest) (string, error) {
	if c == nil || c.url == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(callableRequest{Data: req})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payments: call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("payments: read: %w", err)
	}
	var decoded callableResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 400 {
			return "", fmt.Errorf("payments: decode: %w", err)
		}
	}
	if resp.StatusCode >= 400 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return "", fmt.Errorf("payments: status %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return "", fmt.Errorf("payments: status %d", resp.StatusCode)
	}
	if decoded.Result == nil || decoded.Result.PaymentLink == "" {
		return "", errors.New("payments: empty payment link")
	}
	return decoded.Result.PaymentLink, nil
}
