package service

import (
	"context"
	"fmt"

	"github.com/nairatrade/deposits/internal/observability"
	"go.uber.org/zap"
)

// IntegrityService verifies that every trading-account balance equals the
// sum of its append-only audit deltas. A divergence means a credit was
// applied without its audit row or vice versa, which the transactional
// crediting path is supposed to make impossible.
type IntegrityService struct {
	store QueryStore
}

func NewIntegrityService(store QueryStore) *IntegrityService {
	return &IntegrityService{store: store}
}

// Run reports drifted accounts. Drift is alerted, not repaired: the audit
// trail is immutable and repairs are an operator decision.
func (s *IntegrityService) Run(ctx context.Context) error {
	drifted, err := s.store.Queries().ListLedgerDrift(ctx)
	if err != nil {
		return fmt.Errorf("ledger drift query: %w", err)
	}

	if len(drifted) == 0 {
		zap.L().Info("ledger consistent with audit trail")
		return nil
	}

	for _, d := range drifted {
		observability.IncrementLedgerDrift()
		zap.L().Error("CRITICAL: account balance diverged from audit trail",
			zap.String("account_id", d.AccountID.String()),
			zap.String("balance", d.Balance.String()),
			zap.String("ledger_sum", d.LedgerSum.String()),
		)
	}
	return nil
}
