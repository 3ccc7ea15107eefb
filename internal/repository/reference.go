package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/settings"
)

func (q *Queries) ListBankWhitelist(ctx context.Context) ([]models.BankWhitelistEntry, error) {
	const stmt = `SELECT id, bank_name, account_number, created_at FROM bank_whitelist ORDER BY bank_name`
	rows, err := q.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list bank whitelist: %w", err)
	}
	defer rows.Close()

	var out []models.BankWhitelistEntry
	for rows.Next() {
		var e models.BankWhitelistEntry
		if err := rows.Scan(&e.ID, &e.BankName, &e.AccountNumber, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bank whitelist entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) ListWalletWhitelist(ctx context.Context) ([]models.WalletWhitelistEntry, error) {
	const stmt = `SELECT id, coin, address, created_at FROM wallet_whitelist ORDER BY coin`
	rows, err := q.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list wallet whitelist: %w", err)
	}
	defer rows.Close()

	var out []models.WalletWhitelistEntry
	for rows.Next() {
		var e models.WalletWhitelistEntry
		if err := rows.Scan(&e.ID, &e.Coin, &e.Address, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet whitelist entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	const stmt = `SELECT value FROM settings WHERE key = $1`
	var value string
	if err := q.db.QueryRow(ctx, stmt, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", settings.ErrNotSet
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}
