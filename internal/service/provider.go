package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
)

// Provider normalizes a rail's asynchronous confirmation into a gateway
// event. The manual rails (bank, crypto) parse the back-office
// confirmation payload; the gateway rails delegate to their HTTP clients.
type Provider interface {
	ParseWebhook(body []byte, signature string) (*gateway.Event, error)
}

// NewProviders wires the per-rail provider set used by the reconciler.
func NewProviders(manualHMACKey string, card, momo gateway.Gateway) map[string]Provider {
	return map[string]Provider{
		domain.MethodBank:   &manualProvider{hmacKey: []byte(manualHMACKey)},
		domain.MethodCrypto: &manualProvider{hmacKey: []byte(manualHMACKey)},
		domain.MethodCard:   &gatewayProvider{gw: card},
		domain.MethodMomo:   &gatewayProvider{gw: momo},
	}
}

// manualProvider handles the confirmation payload posted by the treasury
// back office for bank and crypto transfers. Amounts arrive as major-unit
// decimal strings and are authoritative over the requested amount.
type manualProvider struct {
	hmacKey []byte
}

type manualConfirmation struct {
	Reference string `json:"reference"`
	Status    string `json:"status"` // SUCCESS | FAILED
	Amount    string `json:"amount"`
}

func (p *manualProvider) ParseWebhook(body []byte, signature string) (*gateway.Event, error) {
	if !p.verify(body, signature) {
		return nil, gateway.ErrBadSignature
	}

	var payload manualConfirmation
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	payload.Reference = strings.TrimSpace(payload.Reference)
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	if payload.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", gateway.ErrMalformedPayload)
	}
	if status != domain.StatusSuccess && status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: unsupported status %q", gateway.ErrMalformedPayload, payload.Status)
	}

	amount, err := parsePositiveAmount(payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformedPayload, err)
	}

	return &gateway.Event{
		Reference: payload.Reference,
		Succeeded: status == domain.StatusSuccess,
		Amount:    amount,
	}, nil
}

func (p *manualProvider) verify(body []byte, signature string) bool {
	if len(p.hmacKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, p.hmacKey)
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

type gatewayProvider struct {
	gw gateway.Gateway
}

func (p *gatewayProvider) ParseWebhook(body []byte, signature string) (*gateway.Event, error) {
	return p.gw.ParseWebhook(body, signature)
}
