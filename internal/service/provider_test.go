package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const manualKey = "treasury-confirmation-key"

func signManual(body []byte) string {
	mac := hmac.New(sha256.New, []byte(manualKey))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestManualProviderParseWebhook(t *testing.T) {
	providers := NewProviders(manualKey, nil, nil)
	p := providers["bank"]

	body := []byte(`{"reference":"DEP-BNK-ABC123","status":"SUCCESS","amount":"5000.00"}`)
	event, err := p.ParseWebhook(body, signManual(body))
	require.NoError(t, err)
	require.Equal(t, "DEP-BNK-ABC123", event.Reference)
	require.True(t, event.Succeeded)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("5000")))

	// Lowercase status is accepted; the wire casing is not trusted.
	body = []byte(`{"reference":"DEP-CRY-X","status":"failed","amount":"10"}`)
	event, err = p.ParseWebhook(body, signManual(body))
	require.NoError(t, err)
	require.False(t, event.Succeeded)
}

func TestManualProviderRejectsBadSignature(t *testing.T) {
	providers := NewProviders(manualKey, nil, nil)
	p := providers["crypto"]

	body := []byte(`{"reference":"DEP-CRY-ABC","status":"SUCCESS","amount":"100"}`)
	_, err := p.ParseWebhook(body, "sha256=0000")
	require.ErrorIs(t, err, gateway.ErrBadSignature)

	_, err = p.ParseWebhook(body, "")
	require.ErrorIs(t, err, gateway.ErrBadSignature)

	// A provider configured without a key verifies nothing.
	unkeyed := NewProviders("", nil, nil)["bank"]
	_, err = unkeyed.ParseWebhook(body, signManual(body))
	require.ErrorIs(t, err, gateway.ErrBadSignature)
}

func TestManualProviderRejectsMalformedPayloads(t *testing.T) {
	providers := NewProviders(manualKey, nil, nil)
	p := providers["bank"]

	cases := []string{
		`not json`,
		`{"reference":"","status":"SUCCESS","amount":"10"}`,
		`{"reference":"DEP-BNK-A","status":"PENDING","amount":"10"}`,
		`{"reference":"DEP-BNK-A","status":"SUCCESS","amount":"-10"}`,
		`{"reference":"DEP-BNK-A","status":"SUCCESS","amount":"ten"}`,
	}
	for _, body := range cases {
		_, err := p.ParseWebhook([]byte(body), signManual([]byte(body)))
		require.ErrorIs(t, err, gateway.ErrMalformedPayload, "payload %s", body)
	}
}
