package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/service"
	"github.com/shopspring/decimal"
)

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error) {
	const stmt = `SELECT id, user_id, currency, balance, created_at FROM trading_accounts WHERE id = $1`
	return scanAccount(q.db.QueryRow(ctx, stmt, id))
}

// GetWalletAccountByUser returns the user's default (oldest) trading
// account, which is where gateway deposits land when the request names no
// explicit account.
func (q *Queries) GetWalletAccountByUser(ctx context.Context, userID uuid.UUID) (*models.TradingAccount, error) {
	const stmt = `
		SELECT id, user_id, currency, balance, created_at
		FROM trading_accounts
		WHERE user_id = $1
		ORDER BY created_at
		LIMIT 1`
	return scanAccount(q.db.QueryRow(ctx, stmt, userID))
}

func scanAccount(row pgx.Row) (*models.TradingAccount, error) {
	a := &models.TradingAccount{}
	err := row.Scan(&a.ID, &a.UserID, &a.Currency, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan trading account: %w", err)
	}
	return a, nil
}

// CreditAccountBalance applies the delta as a single UPDATE so concurrent
// credits serialize on the row lock, and returns the post-credit balance.
func (q *Queries) CreditAccountBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	const stmt = `
		UPDATE trading_accounts SET balance = balance + $2
		WHERE id = $1
		RETURNING balance`
	var balance decimal.Decimal
	if err := q.db.QueryRow(ctx, stmt, accountID, delta).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, service.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("credit account balance: %w", err)
	}
	return balance, nil
}

func (q *Queries) InsertWalletTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	const stmt = `
		INSERT INTO wallet_transactions (id, user_id, account_id, channel, kind, tx_ref, delta, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := q.db.QueryRow(ctx, stmt,
		tx.ID, tx.UserID, tx.AccountID, tx.Channel, tx.Kind, tx.TxRef, tx.Delta, tx.BalanceAfter,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

func (q *Queries) ListWalletTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]models.WalletTransaction, error) {
	const stmt = `
		SELECT id, user_id, account_id, channel, kind, tx_ref, delta, balance_after, created_at
		FROM wallet_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, stmt, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []models.WalletTransaction
	for rows.Next() {
		var tx models.WalletTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.Channel, &tx.Kind, &tx.TxRef, &tx.Delta, &tx.BalanceAfter, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListLedgerDrift reports accounts whose balance differs from the sum of
// their audit deltas.
func (q *Queries) ListLedgerDrift(ctx context.Context) ([]models.LedgerDrift, error) {
	const stmt = `
		SELECT a.id, a.balance, COALESCE(SUM(w.delta), 0) AS ledger_sum
		FROM trading_accounts a
		LEFT JOIN wallet_transactions w ON w.account_id = a.id
		GROUP BY a.id, a.balance
		HAVING a.balance <> COALESCE(SUM(w.delta), 0)`
	rows, err := q.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("ledger drift query: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerDrift
	for rows.Next() {
		var d models.LedgerDrift
		if err := rows.Scan(&d.AccountID, &d.Balance, &d.LedgerSum); err != nil {
			return nil, fmt.Errorf("scan ledger drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
