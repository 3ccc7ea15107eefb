package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
)

// MomoGateway drives the mobile-money collection API. The provider keys
// transactions by a UUID we supply (X-Reference-Id) and echoes our tx_ref
// back as externalId; amounts are in cents.
type MomoGateway struct {
	baseURL    string
	apiKey     string
	webhookKey []byte
	client     *http.Client
}

func NewMomoGateway(baseURL, apiKey, webhookSecret string, timeout time.Duration) *MomoGateway {
	return &MomoGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		webhookKey: []byte(webhookSecret),
		client:     newHTTPClient(timeout),
	}
}

type momoRequestToPay struct {
	Amount     int64  `json:"amount"` // cents
	Currency   string `json:"currency"`
	ExternalID string `json:"externalId"`
}

func (g *MomoGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	cents, err := domain.ToMinorUnits(req.Amount, domain.MinorUnitScale)
	if err != nil {
		return nil, fmt.Errorf("momo checkout amount: %w", err)
	}

	body, err := json.Marshal(momoRequestToPay{
		Amount:     cents,
		Currency:   req.Currency,
		ExternalID: req.TxRef,
	})
	if err != nil {
		return nil, fmt.Errorf("encode momo request-to-pay: %w", err)
	}

	providerRef := uuid.NewString()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/collection/v1/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build momo request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("X-Reference-Id", providerRef)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("momo request-to-pay call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("momo request-to-pay rejected: status %d", resp.StatusCode)
	}

	// Request-to-pay is push-based; there is no redirect URL to hand back.
	return &Checkout{GatewayRef: providerRef}, nil
}

type momoWebhookPayload struct {
	ReferenceID string `json:"referenceId"`
	ExternalID  string `json:"externalId"`
	Amount      int64  `json:"amount"` // cents
	Currency    string `json:"currency"`
	Status      string `json:"status"` // SUCCESSFUL | FAILED
}

func (g *MomoGateway) ParseWebhook(body []byte, signature string) (*Event, error) {
	if !g.verifySignature(body, signature) {
		return nil, ErrBadSignature
	}

	var payload momoWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.ExternalID == "" || payload.Amount <= 0 {
		return nil, fmt.Errorf("%w: missing externalId or amount", ErrMalformedPayload)
	}

	return &Event{
		Reference:  payload.ExternalID,
		GatewayRef: payload.ReferenceID,
		Succeeded:  strings.EqualFold(payload.Status, "SUCCESSFUL"),
		Amount:     domain.FromMinorUnits(payload.Amount, domain.MinorUnitScale),
	}, nil
}

func (g *MomoGateway) QueryStatus(ctx context.Context, txRef string) (*Event, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/collection/v1/requesttopay/external/"+txRef, nil)
	if err != nil {
		return nil, fmt.Errorf("build momo status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("momo status call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("momo status rejected: status %d", resp.StatusCode)
	}

	var payload momoWebhookPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode momo status response: %w", err)
	}

	return &Event{
		Reference:  payload.ExternalID,
		GatewayRef: payload.ReferenceID,
		Succeeded:  strings.EqualFold(payload.Status, "SUCCESSFUL"),
		Amount:     domain.FromMinorUnits(payload.Amount, domain.MinorUnitScale),
	}, nil
}

func (g *MomoGateway) verifySignature(body []byte, signature string) bool {
	if len(g.webhookKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, g.webhookKey)
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
