package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/notify"
	"github.com/nairatrade/deposits/internal/observability"
	"github.com/nairatrade/deposits/internal/referral"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome classifies one reconciliation attempt.
type Outcome string

const (
	// OutcomeApplied: this attempt performed the transition and its side
	// effects.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the payment was already finalized, by an earlier
	// delivery or by a concurrent one that won the conditional update.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnrecognized: no payment matches the reference; providers
	// send test pings and events for other systems.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeRejected: the payload was malformed or unverifiable.
	OutcomeRejected Outcome = "rejected"
)

// ReconcileService applies asynchronous provider confirmations exactly
// once. Deliveries may be late, duplicated, out of order, or concurrent;
// the conditional status update inside a single transaction is the only
// path to the crediting step.
type ReconcileService struct {
	store     QueryStore
	providers map[string]Provider
	ledger    *LedgerService
	referral  referral.Cascade
	notifier  notify.Dispatcher
}

func NewReconcileService(store QueryStore, providers map[string]Provider, cascade referral.Cascade, notifier notify.Dispatcher) *ReconcileService {
	if cascade == nil {
		cascade = referral.NopCascade{}
	}
	if notifier == nil {
		notifier = notify.NopDispatcher{}
	}
	return &ReconcileService{
		store:     store,
		providers: providers,
		ledger:    NewLedgerService(),
		referral:  cascade,
		notifier:  notifier,
	}
}

// Reconcile parses a raw provider payload for the rail and applies it.
// It only returns an error for persistence failures; every payload-level
// problem is expressed through the outcome so the HTTP layer can pick the
// right acknowledgment.
func (s *ReconcileService) Reconcile(ctx context.Context, method string, body []byte, signature string) (Outcome, error) {
	provider, ok := s.providers[method]
	if !ok {
		observability.IncrementWebhookOutcome(method, string(OutcomeRejected))
		return OutcomeRejected, nil
	}

	event, err := provider.ParseWebhook(body, signature)
	if err != nil {
		zap.L().Warn("webhook rejected", zap.Error(err), zap.String("rail", method))
		observability.IncrementWebhookOutcome(method, string(OutcomeRejected))
		return OutcomeRejected, nil
	}

	outcome, err := s.apply(ctx, event)
	if err != nil {
		return outcome, err
	}
	observability.IncrementWebhookOutcome(method, string(outcome))
	return outcome, nil
}

// Confirm is the manual finalization path for the bank and crypto rails.
// It runs through the same conditional-update transition as webhooks, so
// replaying a confirmation is as harmless as replaying a webhook.
func (s *ReconcileService) Confirm(ctx context.Context, txRef, target string, amount decimal.Decimal) (Outcome, *models.Payment, error) {
	if target != domain.StatusSuccess && target != domain.StatusFailed {
		return OutcomeRejected, nil, fmt.Errorf("unsupported target status %q", target)
	}
	if target == domain.StatusSuccess && amount.Sign() <= 0 {
		return OutcomeRejected, nil, ErrInvalidAmount
	}

	outcome, err := s.apply(ctx, &gateway.Event{
		Reference: txRef,
		Succeeded: target == domain.StatusSuccess,
		Amount:    amount,
	})
	if err != nil {
		return outcome, nil, err
	}
	if outcome == OutcomeUnrecognized {
		return outcome, nil, ErrPaymentNotFound
	}

	p, err := s.store.Queries().GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		return outcome, nil, fmt.Errorf("reload payment %s: %w", txRef, err)
	}
	return outcome, p, nil
}

// apply resolves the event to a payment and performs the transition plus
// side effects.
func (s *ReconcileService) apply(ctx context.Context, event *gateway.Event) (Outcome, error) {
	p, err := s.store.Queries().GetPaymentByTxRef(ctx, event.Reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return OutcomeUnrecognized, nil
		}
		return OutcomeRejected, fmt.Errorf("resolve payment %s: %w", event.Reference, err)
	}

	// Fast path; the conditional update below remains the real guard.
	if domain.IsTerminal(p.Status) {
		return OutcomeDuplicate, nil
	}

	nextStatus := domain.StatusFailed
	if event.Succeeded {
		nextStatus = domain.StatusSuccess
	}

	// The provider-confirmed amount is authoritative. Failed transitions
	// keep the requested amount for the record.
	amount := p.Amount
	if event.Succeeded && event.Amount.Sign() > 0 {
		amount = event.Amount
	}

	var (
		applied bool
		balance decimal.Decimal
	)
	err = s.store.RunInTx(ctx, func(q Queries) error {
		rows, err := q.FinalizePayment(ctx, FinalizePaymentParams{
			TxRef:      p.TxRef,
			Status:     nextStatus,
			Amount:     amount,
			GatewayRef: event.GatewayRef,
		})
		if err != nil {
			return fmt.Errorf("finalize payment %s: %w", p.TxRef, err)
		}
		if rows == 0 {
			// A concurrent reconciler won the race. Nothing to credit.
			return nil
		}
		if err := requireExactlyOne(rows, "finalize payment"); err != nil {
			return err
		}
		applied = true

		if nextStatus == domain.StatusSuccess {
			balance, err = s.ledger.Credit(ctx, q, p, amount)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OutcomeRejected, err
	}
	if !applied {
		return OutcomeDuplicate, nil
	}

	s.afterCommit(ctx, p, nextStatus, amount, balance)
	return OutcomeApplied, nil
}

// afterCommit fires the best-effort side effects. Failures here are logged
// and counted; the committed credit is never rolled back for them.
func (s *ReconcileService) afterCommit(ctx context.Context, p *models.Payment, status string, amount, balance decimal.Decimal) {
	eventType := notify.EventDepositFailed
	if status == domain.StatusSuccess {
		eventType = notify.EventDepositSuccess
		observability.IncrementDepositCredited(p.Method)

		if err := s.referral.Apply(ctx, p.UserID, amount, p.TxRef); err != nil {
			observability.IncrementNotifyFailure("referral")
			zap.L().Warn("referral cascade failed", zap.Error(err), zap.String("tx_ref", p.TxRef))
		}
	}

	if err := s.notifier.Dispatch(ctx, notify.Event{
		Type:    eventType,
		UserID:  p.UserID,
		TxRef:   p.TxRef,
		Method:  p.Method,
		Amount:  amount,
		Balance: balance,
	}); err != nil {
		observability.IncrementNotifyFailure("notification")
		zap.L().Warn("deposit notification failed", zap.Error(err), zap.String("tx_ref", p.TxRef))
	}
}
