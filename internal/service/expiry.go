package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
	"go.uber.org/zap"
)

// ExpiryService resolves gateway deposits stuck in PENDING. A checkout the
// customer abandoned never gets a webhook, so the row would sit pending
// forever; this service re-queries the provider and either finalizes the
// payment or cancels it. A cancelled payment stays eligible for late
// finalization, so cancelling here is always safe.
type ExpiryService struct {
	store      QueryStore
	gateways   map[string]gateway.Gateway
	reconciler *ReconcileService
	maxAge     time.Duration
}

func NewExpiryService(store QueryStore, gateways map[string]gateway.Gateway, reconciler *ReconcileService, maxAge time.Duration) *ExpiryService {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &ExpiryService{
		store:      store,
		gateways:   gateways,
		reconciler: reconciler,
		maxAge:     maxAge,
	}
}

// Run scans one batch of stale pending gateway payments.
func (s *ExpiryService) Run(ctx context.Context, batchSize int32) error {
	cutoff := time.Now().Add(-s.maxAge)
	stale, err := s.store.Queries().ListStalePendingPayments(ctx, []string{domain.MethodCard, domain.MethodMomo}, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("scan stale pending payments: %w", err)
	}

	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}

		gw, ok := s.gateways[p.Method]
		if !ok {
			continue
		}

		event, err := gw.QueryStatus(ctx, p.TxRef)
		if err != nil {
			zap.L().Warn("stale payment status query failed",
				zap.Error(err), zap.String("tx_ref", p.TxRef), zap.String("rail", p.Method))
			continue
		}

		if event.Succeeded {
			outcome, err := s.reconciler.apply(ctx, event)
			if err != nil {
				zap.L().Error("stale payment finalization failed", zap.Error(err), zap.String("tx_ref", p.TxRef))
				continue
			}
			zap.L().Info("stale payment finalized from provider status",
				zap.String("tx_ref", p.TxRef), zap.String("outcome", string(outcome)))
			continue
		}

		rows, err := s.store.Queries().CancelPayment(ctx, p.TxRef)
		if err != nil {
			zap.L().Error("stale payment cancel failed", zap.Error(err), zap.String("tx_ref", p.TxRef))
			continue
		}
		if rows == 1 {
			zap.L().Info("stale pending payment cancelled", zap.String("tx_ref", p.TxRef))
		}
	}
	return nil
}
