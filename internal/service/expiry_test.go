package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func backdatePayment(store *memStore, txRef string, age time.Duration) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.payments[txRef].CreatedAt = time.Now().Add(-age)
}

func TestExpirySweepCancelsAbandonedCheckouts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mock := gateway.NewMockGateway()
	gateways := map[string]gateway.Gateway{domain.MethodCard: mock}
	reconciler := NewReconcileService(store, nil, nil, nil)
	svc := NewExpiryService(store, gateways, reconciler, 30*time.Minute)

	stale := seedPendingPayment(t, store, domain.MethodCard)
	backdatePayment(store, stale.TxRef, time.Hour)
	fresh := seedPendingPayment(t, store, domain.MethodCard)

	require.NoError(t, svc.Run(ctx, 10))

	got, err := store.GetPaymentByTxRef(ctx, stale.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, got.Status)

	got, err = store.GetPaymentByTxRef(ctx, fresh.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)
}

func TestExpirySweepFinalizesPaidCheckouts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mock := gateway.NewMockGateway()
	gateways := map[string]gateway.Gateway{domain.MethodCard: mock}
	reconciler := NewReconcileService(store, nil, nil, nil)
	svc := NewExpiryService(store, gateways, reconciler, 30*time.Minute)

	p := seedPendingPayment(t, store, domain.MethodCard)
	backdatePayment(store, p.TxRef, time.Hour)

	// The webhook was lost, but the provider says the customer paid.
	amount := decimal.RequireFromString("5000")
	mock.StatusEvents[p.TxRef] = &gateway.Event{
		Reference:  p.TxRef,
		GatewayRef: "GW-9",
		Succeeded:  true,
		Amount:     amount,
	}

	require.NoError(t, svc.Run(ctx, 10))

	got, err := store.GetPaymentByTxRef(ctx, p.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, got.Status)
	require.True(t, store.accountBalance(p.AccountID).Equal(amount))
	require.Equal(t, 1, store.walletTransactionCount(p.TxRef))
}

func TestExpirySweepSkipsManualRails(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	reconciler := NewReconcileService(store, nil, nil, nil)
	svc := NewExpiryService(store, map[string]gateway.Gateway{}, reconciler, 30*time.Minute)

	// Manual deposits wait for back-office confirmation indefinitely.
	p := seedPendingPayment(t, store, domain.MethodBank)
	backdatePayment(store, p.TxRef, 48*time.Hour)

	require.NoError(t, svc.Run(ctx, 10))

	got, err := store.GetPaymentByTxRef(ctx, p.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)
}

func TestIntegrityRunFlagsDrift(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewIntegrityService(store)

	account := store.addAccount(uuid.New())
	require.NoError(t, svc.Run(ctx))

	// Force a divergence the transactional credit path can never produce.
	store.mu.Lock()
	store.accounts[account.ID].Balance = decimal.RequireFromString("250")
	store.mu.Unlock()

	drifted, err := store.ListLedgerDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	require.Equal(t, account.ID, drifted[0].AccountID)
	require.NoError(t, svc.Run(ctx))
}
