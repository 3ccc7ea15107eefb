package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the central deposit record. It is created once in PENDING and
// afterwards mutated only by the reconciliation path; rows are never deleted.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	TxRef     string          `json:"tx_ref"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`

	// Manual rail destinations.
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Coin          string `json:"coin,omitempty"`
	Address       string `json:"address,omitempty"`

	// Gateway rail attributes.
	GatewayRef  string `json:"gateway_ref,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletTransaction is the append-only audit row written exactly once per
// successful credit. BalanceAfter snapshots the account balance at commit.
type WalletTransaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Channel      string          `json:"channel"`
	Kind         string          `json:"kind"`
	TxRef        string          `json:"tx_ref"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TradingAccount holds a user's credited balance.
type TradingAccount struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// BankWhitelistEntry is an admin-curated legitimate bank destination.
// Read-only from this service's perspective.
type BankWhitelistEntry struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// WalletWhitelistEntry is an admin-curated legitimate crypto destination.
type WalletWhitelistEntry struct {
	ID        uuid.UUID `json:"id"`
	Coin      string    `json:"coin"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting is a platform key/value configuration row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerDrift reports an account whose balance diverged from the sum of
// its audit deltas.
type LedgerDrift struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
}
