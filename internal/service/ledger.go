package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerService applies balance deltas and appends the matching audit row.
// Credit must run inside the caller's transaction so the status transition,
// the balance change and the audit record commit or roll back together.
type LedgerService struct{}

func NewLedgerService() *LedgerService {
	return &LedgerService{}
}

// Credit atomically adds amount to the payment's trading account and
// appends exactly one WalletTransaction carrying the post-credit balance.
// The balance increment is a single UPDATE so concurrent credits to the
// same account serialize on the row lock.
func (l *LedgerService) Credit(ctx context.Context, q Queries, p *models.Payment, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := q.CreditAccountBalance(ctx, p.AccountID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit account %s: %w", p.AccountID, err)
	}

	if err := q.InsertWalletTransaction(ctx, &models.WalletTransaction{
		ID:           uuid.New(),
		UserID:       p.UserID,
		AccountID:    p.AccountID,
		Channel:      domain.ChannelWallet,
		Kind:         domain.KindDeposit,
		TxRef:        p.TxRef,
		Delta:        amount,
		BalanceAfter: balance,
	}); err != nil {
		return decimal.Zero, fmt.Errorf("append wallet transaction for %s: %w", p.TxRef, err)
	}

	return balance, nil
}
