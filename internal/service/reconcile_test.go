package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev notify.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return nil
}

func (d *recordingDispatcher) Close() error { return nil }

func (d *recordingDispatcher) byType(eventType string) []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Event
	for _, ev := range d.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type recordingCascade struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCascade) Apply(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, txRef)
	return nil
}

type stubProvider struct {
	event *gateway.Event
	err   error
}

func (p *stubProvider) ParseWebhook(body []byte, signature string) (*gateway.Event, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.event, nil
}

func seedPendingPayment(t *testing.T, store *memStore, method string) *models.Payment {
	t.Helper()
	userID := uuid.New()
	account := store.addAccount(userID)
	p := &models.Payment{
		ID:        uuid.New(),
		UserID:    userID,
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("5000"),
		TxRef:     NewTxRef(method),
		Method:    method,
		Status:    domain.StatusPending,
	}
	require.NoError(t, store.InsertPayment(context.Background(), p))
	return p
}

func TestConfirmCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	cascade := &recordingCascade{}
	svc := NewReconcileService(store, nil, cascade, dispatcher)

	p := seedPendingPayment(t, store, domain.MethodBank)
	amount := decimal.RequireFromString("5000")

	outcome, got, err := svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, amount)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, domain.StatusSuccess, got.Status)

	// Replay. The conditional update finds no PENDING row, so nothing
	// moves again.
	outcome, got, err = svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, amount)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, outcome)
	require.Equal(t, domain.StatusSuccess, got.Status)

	require.True(t, store.accountBalance(p.AccountID).Equal(amount),
		"balance %s, want %s", store.accountBalance(p.AccountID), amount)
	require.Equal(t, 1, store.walletTransactionCount(p.TxRef))
	require.Len(t, cascade.calls, 1)
	require.Len(t, dispatcher.byType(notify.EventDepositSuccess), 1)
}

func TestConfirmConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cascade := &recordingCascade{}
	svc := NewReconcileService(store, nil, cascade, &recordingDispatcher{})

	p := seedPendingPayment(t, store, domain.MethodBank)
	amount := decimal.RequireFromString("250.50")

	const deliveries = 100
	outcomes := make(chan Outcome, deliveries)
	errs := make(chan error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _, err := svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, amount)
			if err != nil {
				errs <- err
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent confirm failed: %v", err)
	}

	applied, duplicate := 0, 0
	for outcome := range outcomes {
		switch outcome {
		case OutcomeApplied:
			applied++
		case OutcomeDuplicate:
			duplicate++
		}
	}
	require.Equal(t, 1, applied)
	require.Equal(t, deliveries-1, duplicate)
	require.True(t, store.accountBalance(p.AccountID).Equal(amount))
	require.Equal(t, 1, store.walletTransactionCount(p.TxRef))
	require.Len(t, cascade.calls, 1)
}

func TestConfirmFailedDoesNotCredit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	cascade := &recordingCascade{}
	svc := NewReconcileService(store, nil, cascade, dispatcher)

	p := seedPendingPayment(t, store, domain.MethodCrypto)

	outcome, got, err := svc.Confirm(ctx, p.TxRef, domain.StatusFailed, decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, domain.StatusFailed, got.Status)

	require.True(t, store.accountBalance(p.AccountID).IsZero())
	require.Equal(t, 0, store.walletTransactionCount(p.TxRef))
	require.Empty(t, cascade.calls)
	require.Len(t, dispatcher.byType(notify.EventDepositFailed), 1)
}

func TestConfirmCancelledPaymentStillFinalizes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewReconcileService(store, nil, nil, nil)

	p := seedPendingPayment(t, store, domain.MethodBank)
	rows, err := store.CancelPayment(ctx, p.TxRef)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	// The customer cancelled, but the transfer already left their bank.
	amount := decimal.RequireFromString("5000")
	outcome, got, err := svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, amount)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, domain.StatusSuccess, got.Status)
	require.True(t, store.accountBalance(p.AccountID).Equal(amount))
}

func TestConfirmRejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewReconcileService(store, nil, nil, nil)
	p := seedPendingPayment(t, store, domain.MethodBank)

	outcome, _, err := svc.Confirm(ctx, p.TxRef, domain.StatusPending, decimal.RequireFromString("10"))
	require.Error(t, err)
	require.Equal(t, OutcomeRejected, outcome)

	outcome, _, err = svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Equal(t, OutcomeRejected, outcome)

	got, err := store.GetPaymentByTxRef(ctx, p.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)
}

func TestConfirmUnknownReference(t *testing.T) {
	store := newMemStore()
	svc := NewReconcileService(store, nil, nil, nil)

	outcome, _, err := svc.Confirm(context.Background(), "DEP-BNK-MISSING", domain.StatusSuccess, decimal.RequireFromString("10"))
	require.ErrorIs(t, err, ErrPaymentNotFound)
	require.Equal(t, OutcomeUnrecognized, outcome)
}

func TestConfirmedAmountIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewReconcileService(store, nil, nil, nil)

	p := seedPendingPayment(t, store, domain.MethodBank) // requested 5000
	confirmed := decimal.RequireFromString("4980.25")    // provider net of fees

	outcome, got, err := svc.Confirm(ctx, p.TxRef, domain.StatusSuccess, confirmed)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.True(t, got.Amount.Equal(confirmed))
	require.True(t, store.accountBalance(p.AccountID).Equal(confirmed))
}

func TestReconcileOutcomes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := seedPendingPayment(t, store, domain.MethodCard)

	providers := map[string]Provider{
		"card": &stubProvider{event: &gateway.Event{
			Reference:  p.TxRef,
			GatewayRef: "GW-1",
			Succeeded:  true,
			Amount:     decimal.RequireFromString("5000"),
		}},
		"momo": &stubProvider{err: gateway.ErrBadSignature},
	}
	svc := NewReconcileService(store, providers, nil, nil)

	outcome, err := svc.Reconcile(ctx, "card", []byte(`{}`), "sig")
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	got, err := store.GetPaymentByTxRef(ctx, p.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, got.Status)
	require.Equal(t, "GW-1", got.GatewayRef)

	// Same delivery again.
	outcome, err = svc.Reconcile(ctx, "card", []byte(`{}`), "sig")
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, outcome)

	// Unverifiable payload and unknown rail are rejected without error.
	outcome, err = svc.Reconcile(ctx, "momo", []byte(`{}`), "bad")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, outcome)

	outcome, err = svc.Reconcile(ctx, "cheques", []byte(`{}`), "")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, outcome)
}

func TestReconcileUnrecognizedReferenceIsAcknowledged(t *testing.T) {
	store := newMemStore()
	providers := map[string]Provider{
		"card": &stubProvider{event: &gateway.Event{
			Reference: "DEP-CRD-UNKNOWN",
			Succeeded: true,
			Amount:    decimal.RequireFromString("100"),
		}},
	}
	svc := NewReconcileService(store, providers, nil, nil)

	outcome, err := svc.Reconcile(context.Background(), "card", []byte(`{}`), "sig")
	require.NoError(t, err)
	require.Equal(t, OutcomeUnrecognized, outcome)
}
