package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nairatrade/deposits/internal/domain"
)

// CardGateway talks to the card processor. Amounts on the wire are kobo;
// webhook bodies are signed with HMAC-SHA512 of the raw payload.
type CardGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewCardGateway(baseURL, secretKey string, timeout time.Duration) *CardGateway {
	return &CardGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    newHTTPClient(timeout),
	}
}

type cardInitRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"` // kobo
	Reference string `json:"reference"`
	Currency  string `json:"currency"`
}

type cardInitResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (g *CardGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	kobo, err := domain.ToMinorUnits(req.Amount, domain.MinorUnitScale)
	if err != nil {
		return nil, fmt.Errorf("card checkout amount: %w", err)
	}

	body, err := json.Marshal(cardInitRequest{
		Email:     req.Email,
		Amount:    kobo,
		Reference: req.TxRef,
		Currency:  req.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("encode card checkout: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build card checkout request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("card checkout call: %w", err)
	}
	defer resp.Body.Close()

	var out cardInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode card checkout response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("card checkout rejected: %s", out.Msg)
	}

	return &Checkout{
		GatewayRef:  out.Data.AccessCode,
		CheckoutURL: out.Data.AuthorizationURL,
	}, nil
}

type cardWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"` // kobo
	} `json:"data"`
}

func (g *CardGateway) ParseWebhook(body []byte, signature string) (*Event, error) {
	if !g.verifySignature(body, signature) {
		return nil, ErrBadSignature
	}

	var payload cardWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Data.Reference == "" || payload.Data.Amount <= 0 {
		return nil, fmt.Errorf("%w: missing reference or amount", ErrMalformedPayload)
	}

	succeeded := payload.Event == "charge.success" && strings.EqualFold(payload.Data.Status, "success")
	return &Event{
		Reference:  payload.Data.Reference,
		GatewayRef: fmt.Sprintf("%d", payload.Data.ID),
		Succeeded:  succeeded,
		Amount:     domain.FromMinorUnits(payload.Data.Amount, domain.MinorUnitScale),
	}, nil
}

type cardVerifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// QueryStatus re-checks a transaction directly with the processor. Used by
// the expiry worker to resolve stale pending checkouts.
func (g *CardGateway) QueryStatus(ctx context.Context, txRef string) (*Event, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, fmt.Errorf("build card verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("card verify call: %w", err)
	}
	defer resp.Body.Close()

	var out cardVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode card verify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("card verify rejected for %s", txRef)
	}

	return &Event{
		Reference:  out.Data.Reference,
		GatewayRef: fmt.Sprintf("%d", out.Data.ID),
		Succeeded:  strings.EqualFold(out.Data.Status, "success"),
		Amount:     domain.FromMinorUnits(out.Data.Amount, domain.MinorUnitScale),
	}, nil
}

func (g *CardGateway) verifySignature(body []byte, signature string) bool {
	if g.secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(g.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
