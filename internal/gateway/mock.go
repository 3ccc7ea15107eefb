package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MockGateway is an in-process Gateway for tests and local runs. It records
// checkout calls and serves canned webhook events.
type MockGateway struct {
	mu sync.Mutex

	// CheckoutErr, when set, is returned from CreateCheckout.
	CheckoutErr error
	// StatusEvents maps tx_ref to the event QueryStatus should return.
	StatusEvents map[string]*Event

	created []CheckoutRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{StatusEvents: map[string]*Event{}}
}

func (g *MockGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CheckoutErr != nil {
		return nil, g.CheckoutErr
	}
	g.created = append(g.created, req)
	return &Checkout{
		GatewayRef:  fmt.Sprintf("MOCK-%d", len(g.created)),
		CheckoutURL: "https://checkout.example/" + req.TxRef,
	}, nil
}

// ParseWebhook accepts the JSON the card gateway emits but skips signature
// checks; tests construct events directly instead.
func (g *MockGateway) ParseWebhook(body []byte, signature string) (*Event, error) {
	return nil, ErrMalformedPayload
}

func (g *MockGateway) QueryStatus(ctx context.Context, txRef string) (*Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ev, ok := g.StatusEvents[txRef]; ok {
		return ev, nil
	}
	return &Event{Reference: txRef, Succeeded: false, Amount: decimal.Zero}, nil
}

// Created returns the checkout requests seen so far.
func (g *MockGateway) Created() []CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CheckoutRequest, len(g.created))
	copy(out, g.created)
	return out
}
