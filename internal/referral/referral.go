package referral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cascade triggers downstream referral-bonus computation for a successful
// deposit. Invoked at most once per payment, after the credit commits;
// failures are the referral engine's problem to reconcile, not ours.
type Cascade interface {
	Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txRef string) error
}

// HTTPCascade posts to the referral engine's apply endpoint.
type HTTPCascade struct {
	url    string
	client *http.Client
}

func NewHTTPCascade(url string, timeout time.Duration) *HTTPCascade {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCascade{url: url, client: &http.Client{Timeout: timeout}}
}

type applyRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	TxRef  string          `json:"tx_ref"`
}

func (c *HTTPCascade) Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txRef string) error {
	body, err := json.Marshal(applyRequest{UserID: userID, Amount: amount, TxRef: txRef})
	if err != nil {
		return fmt.Errorf("encode referral apply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build referral apply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("referral apply call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("referral apply rejected: status %d", resp.StatusCode)
	}
	return nil
}

// NopCascade is used when no referral engine is configured.
type NopCascade struct{}

func (NopCascade) Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txRef string) error {
	return nil
}
