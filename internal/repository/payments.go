package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/service"
)

const paymentColumns = `id, user_id, account_id, amount, tx_ref, method, status,
	bank_name, account_number, coin, address, gateway_ref, checkout_url,
	created_at, updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.AccountID, &p.Amount, &p.TxRef, &p.Method, &p.Status,
		&p.BankName, &p.AccountNumber, &p.Coin, &p.Address, &p.GatewayRef, &p.CheckoutURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

func (q *Queries) InsertPayment(ctx context.Context, p *models.Payment) error {
	const stmt = `
		INSERT INTO payments (id, user_id, account_id, amount, tx_ref, method, status,
			bank_name, account_number, coin, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, stmt,
		p.ID, p.UserID, p.AccountID, p.Amount, p.TxRef, p.Method, p.Status,
		p.BankName, p.AccountNumber, p.Coin, p.Address,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (q *Queries) GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	stmt := `SELECT ` + paymentColumns + ` FROM payments WHERE tx_ref = $1`
	return scanPayment(q.db.QueryRow(ctx, stmt, txRef))
}

// FinalizePayment is the conditional transition guarding the crediting
// step. The predicate restricts the prior status; callers must treat an
// affected-row count of zero as a lost race, not an error.
func (q *Queries) FinalizePayment(ctx context.Context, params service.FinalizePaymentParams) (int64, error) {
	const stmt = `
		UPDATE payments
		SET status = $2,
			amount = $3,
			gateway_ref = CASE WHEN $4 <> '' THEN $4 ELSE gateway_ref END,
			updated_at = NOW()
		WHERE tx_ref = $1 AND status IN ($5, $6)`
	tag, err := q.db.Exec(ctx, stmt,
		params.TxRef, params.Status, params.Amount, params.GatewayRef,
		domain.StatusPending, domain.StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("finalize payment: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CancelPayment only moves PENDING rows; a concurrent finalization wins.
func (q *Queries) CancelPayment(ctx context.Context, txRef string) (int64, error) {
	const stmt = `
		UPDATE payments SET status = $2, updated_at = NOW()
		WHERE tx_ref = $1 AND status = $3`
	tag, err := q.db.Exec(ctx, stmt, txRef, domain.StatusCancelled, domain.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("cancel payment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) SetPaymentCheckout(ctx context.Context, txRef, gatewayRef, checkoutURL string) (int64, error) {
	const stmt = `
		UPDATE payments SET gateway_ref = $2, checkout_url = $3, updated_at = NOW()
		WHERE tx_ref = $1`
	tag, err := q.db.Exec(ctx, stmt, txRef, gatewayRef, checkoutURL)
	if err != nil {
		return 0, fmt.Errorf("set payment checkout: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListStalePendingPayments(ctx context.Context, methods []string, olderThan time.Time, limit int32) ([]models.Payment, error) {
	stmt := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND method = ANY($2) AND created_at < $3
		ORDER BY created_at
		LIMIT $4`
	rows, err := q.db.Query(ctx, stmt, domain.StatusPending, methods, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", err)
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
