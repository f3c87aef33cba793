package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

// Client talks to the payment processor. Capture is retry-safe: the
// processor deduplicates on the Idempotency-Key header, which we always set
// to the checkpoint id.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a processor client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CaptureIn is the request body for capturing a milestone payment.
type CaptureIn struct {
	MilestoneID string  `json:"milestone_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
}

// CaptureOut is the processor's capture response.
type CaptureOut struct {
	Success        bool   `json:"success"`
	TransactionRef string `json:"transaction_ref"`
	DeclineCode    string `json:"decline_code,omitempty"`
}

// Capture charges the client for one approved milestone. The checkpoint id
// doubles as the idempotency key so transport retries never double-charge.
func (c *Client) Capture(ctx context.Context, checkpointID, milestoneID string, amount float64) (*CaptureOut, error) {
	body, err := json.Marshal(CaptureIn{MilestoneID: milestoneID, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("marshal capture request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/captures", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", checkpointID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "payment processor unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "read capture response")
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, appErrors.Clone(appErrors.ErrInsufficientFunds, "payment capture declined")
	case resp.StatusCode >= 400:
		return nil, appErrors.Wrap(
			fmt.Errorf("processor returned %d: %s", resp.StatusCode, raw),
			appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "payment capture failed")
	}

	var out CaptureOut
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "decode capture response")
	}
	if !out.Success {
		if out.DeclineCode == "insufficient_funds" {
			return nil, appErrors.Clone(appErrors.ErrInsufficientFunds, "payment capture declined")
		}
		return nil, appErrors.Clone(appErrors.ErrDependency, "payment capture rejected")
	}
	return &out, nil
}
