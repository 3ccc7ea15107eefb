package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/settings"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory QueryStore. Every method takes the store lock,
// so the conditional finalize update is atomic the same way the SQL one
// is, which is what the concurrency tests lean on.
type memStore struct {
	mu           sync.Mutex
	payments     map[string]*models.Payment
	accounts     map[uuid.UUID]*models.TradingAccount
	transactions []models.WalletTransaction
	banks        []models.BankWhitelistEntry
	wallets      []models.WalletWhitelistEntry
	settings     map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[string]*models.Payment),
		accounts: make(map[uuid.UUID]*models.TradingAccount),
		settings: make(map[string]string),
	}
}

func (m *memStore) Queries() Queries { return m }

func (m *memStore) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	return fn(m)
}

func (m *memStore) addAccount(userID uuid.UUID) *models.TradingAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := &models.TradingAccount{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  "NGN",
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
	}
	m.accounts[account.ID] = account
	return account
}

func (m *memStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	m.payments[p.TxRef] = &clone
	p.CreatedAt = clone.CreatedAt
	p.UpdatedAt = clone.UpdatedAt
	return nil
}

func (m *memStore) GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memStore) FinalizePayment(ctx context.Context, params FinalizePaymentParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[params.TxRef]
	if !ok {
		return 0, nil
	}
	if p.Status != domain.StatusPending && p.Status != domain.StatusCancelled {
		return 0, nil
	}
	p.Status = params.Status
	p.Amount = params.Amount
	if params.GatewayRef != "" {
		p.GatewayRef = params.GatewayRef
	}
	p.UpdatedAt = time.Now()
	return 1, nil
}

func (m *memStore) CancelPayment(ctx context.Context, txRef string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok || p.Status != domain.StatusPending {
		return 0, nil
	}
	p.Status = domain.StatusCancelled
	p.UpdatedAt = time.Now()
	return 1, nil
}

func (m *memStore) SetPaymentCheckout(ctx context.Context, txRef, gatewayRef, checkoutURL string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok || p.Status != domain.StatusPending {
		return 0, nil
	}
	p.GatewayRef = gatewayRef
	p.CheckoutURL = checkoutURL
	return 1, nil
}

func (m *memStore) ListStalePendingPayments(ctx context.Context, methods []string, olderThan time.Time, limit int32) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.Status != domain.StatusPending || !p.CreatedAt.Before(olderThan) {
			continue
		}
		for _, method := range methods {
			if p.Method == method {
				out = append(out, *p)
				break
			}
		}
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *memStore) GetWalletAccountByUser(ctx context.Context, userID uuid.UUID) (*models.TradingAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *models.TradingAccount
	for _, account := range m.accounts {
		if account.UserID != userID {
			continue
		}
		if oldest == nil || account.CreatedAt.Before(oldest.CreatedAt) {
			oldest = account
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	clone := *oldest
	return &clone, nil
}

func (m *memStore) CreditAccountBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	account.Balance = account.Balance.Add(delta)
	return account.Balance, nil
}

func (m *memStore) InsertWalletTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.CreatedAt = time.Now()
	m.transactions = append(m.transactions, *tx)
	return nil
}

func (m *memStore) ListWalletTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WalletTransaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListBankWhitelist(ctx context.Context) ([]models.BankWhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BankWhitelistEntry(nil), m.banks...), nil
}

func (m *memStore) ListWalletWhitelist(ctx context.Context) ([]models.WalletWhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WalletWhitelistEntry(nil), m.wallets...), nil
}

func (m *memStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.settings[key]
	if !ok {
		return "", settings.ErrNotSet
	}
	return val, nil
}

func (m *memStore) ListLedgerDrift(ctx context.Context) ([]models.LedgerDrift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range m.transactions {
		sums[tx.AccountID] = sums[tx.AccountID].Add(tx.Delta)
	}
	var out []models.LedgerDrift
	for id, account := range m.accounts {
		if !account.Balance.Equal(sums[id]) {
			out = append(out, models.LedgerDrift{
				AccountID: id,
				Balance:   account.Balance,
				LedgerSum: sums[id],
			})
		}
	}
	return out, nil
}

func (m *memStore) walletTransactionCount(txRef string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, tx := range m.transactions {
		if tx.TxRef == txRef {
			count++
		}
	}
	return count
}

func (m *memStore) accountBalance(accountID uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.accounts[accountID]; ok {
		return account.Balance
	}
	return decimal.Zero
}
