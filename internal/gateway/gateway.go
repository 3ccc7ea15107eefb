package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrBadSignature means the webhook body did not match its signature.
	ErrBadSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload means the webhook body could not be parsed for
	// this provider.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// CheckoutRequest asks a gateway to open a checkout for a deposit.
type CheckoutRequest struct {
	TxRef    string
	Email    string
	Amount   decimal.Decimal
	Currency string
}

// Checkout is the redirect handle returned by a gateway.
type Checkout struct {
	GatewayRef  string `json:"gateway_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// Event is a provider confirmation, normalized across gateways. Amount is
// already converted to major units; it is the authoritative credited value.
type Event struct {
	Reference  string
	GatewayRef string
	Succeeded  bool
	Amount     decimal.Decimal
}

// Gateway is the payment-provider contract: create a checkout, parse an
// asynchronous confirmation, and re-query a possibly stale transaction.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	ParseWebhook(body []byte, signature string) (*Event, error)
	QueryStatus(ctx context.Context, txRef string) (*Event, error)
}

// newHTTPClient returns the bounded-timeout client shared by the gateway
// implementations. Provider calls must never hang a request handler.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
