package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nairatrade/deposits/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WebhookHandler receives asynchronous provider confirmations.
type WebhookHandler struct {
	reconciler *service.ReconcileService
}

func NewWebhookHandler(reconciler *service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleRailWebhook handles POST /v1/webhooks/{rail}.
//
// Acknowledgment policy: applied, duplicate and unrecognized deliveries are
// all acknowledged with 200 so the provider stops retrying; only payloads
// we could not verify or parse get a 400. Persistence failures return 500
// so the provider retries against a healthy instance later.
func (h *WebhookHandler) HandleRailWebhook(w http.ResponseWriter, r *http.Request) {
	rail := chi.URLParam(r, "rail")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err), zap.String("rail", rail))
		RespondError(w, r, http.StatusBadRequest, "webhooks/unreadable-body", "failed to read request body")
		return
	}
	signature := webhookSignature(r)

	outcome, err := h.reconciler.Reconcile(r.Context(), rail, body, signature)
	if err != nil {
		zap.L().Error("webhook reconciliation failed", zap.Error(err), zap.String("rail", rail))
		RespondError(w, r, http.StatusInternalServerError, "webhooks/reconciliation-failed", "could not apply event")
		return
	}

	if outcome == service.OutcomeRejected {
		RespondError(w, r, http.StatusBadRequest, "webhooks/rejected", "payload could not be verified")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

// Providers disagree on the signature header name; accept the common ones.
func webhookSignature(r *http.Request) string {
	for _, header := range []string{"X-Webhook-Signature", "X-Paystack-Signature", "X-Signature"} {
		if sig := r.Header.Get(header); sig != "" {
			return sig
		}
	}
	return ""
}

type confirmBody struct {
	Status string `json:"status"`
	Amount string `json:"amount"`
}

// HandleConfirmDeposit handles POST /v1/admin/deposits/{txRef}/confirm, the
// back-office finalization path for the manual rails.
func (h *WebhookHandler) HandleConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	txRef := chi.URLParam(r, "txRef")

	var body confirmBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid JSON body")
		return
	}

	amount := decimal.Zero
	if strings.TrimSpace(body.Amount) != "" {
		var err error
		amount, err = decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "deposits/invalid-amount", "amount must be a decimal string")
			return
		}
	}

	outcome, p, err := h.reconciler.Confirm(r.Context(), txRef, strings.ToUpper(strings.TrimSpace(body.Status)), amount)
	if err != nil {
		if outcome == service.OutcomeRejected {
			RespondError(w, r, http.StatusBadRequest, "deposits/invalid-confirmation", err.Error())
			return
		}
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"payment": p,
	})
}
