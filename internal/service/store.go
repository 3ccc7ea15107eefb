package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by query implementations when a row is absent.
var ErrNotFound = errors.New("not found")

// FinalizePaymentParams drives the conditional status update that is the
// sole idempotency guard for crediting. The update predicate restricts the
// prior status to PENDING or CANCELLED; callers must check the returned
// row count and treat 0 as a lost race.
type FinalizePaymentParams struct {
	TxRef      string
	Status     string
	Amount     decimal.Decimal
	GatewayRef string
}

// Queries is the data access contract the services depend on. The
// repository package provides the Postgres implementation; tests use an
// in-memory one.
type Queries interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	FinalizePayment(ctx context.Context, params FinalizePaymentParams) (int64, error)
	CancelPayment(ctx context.Context, txRef string) (int64, error)
	SetPaymentCheckout(ctx context.Context, txRef, gatewayRef, checkoutURL string) (int64, error)
	ListStalePendingPayments(ctx context.Context, methods []string, olderThan time.Time, limit int32) ([]models.Payment, error)

	GetAccount(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error)
	GetWalletAccountByUser(ctx context.Context, userID uuid.UUID) (*models.TradingAccount, error)
	CreditAccountBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	InsertWalletTransaction(ctx context.Context, tx *models.WalletTransaction) error
	ListWalletTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]models.WalletTransaction, error)

	ListBankWhitelist(ctx context.Context) ([]models.BankWhitelistEntry, error)
	ListWalletWhitelist(ctx context.Context) ([]models.WalletWhitelistEntry, error)

	GetSetting(ctx context.Context, key string) (string, error)

	ListLedgerDrift(ctx context.Context) ([]models.LedgerDrift, error)
}

// QueryStore scopes queries to either the pool or a single transaction.
type QueryStore interface {
	Queries() Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}
