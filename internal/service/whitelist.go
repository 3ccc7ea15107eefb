package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/models"
	"go.uber.org/zap"
)

// WhitelistValidator checks claimed manual-rail destinations against the
// admin-maintained whitelists. It never returns an error to callers: a
// destination that cannot be verified is simply not valid. The snapshot is
// cached briefly because it gates acceptance of real money movement;
// staleness of seconds is tolerable, minutes is not.
type WhitelistValidator struct {
	store QueryStore
	ttl   time.Duration

	mu        sync.Mutex
	banks     []models.BankWhitelistEntry
	wallets   []models.WalletWhitelistEntry
	refreshed time.Time
}

const defaultWhitelistTTL = 10 * time.Second

func NewWhitelistValidator(store QueryStore, ttl time.Duration) *WhitelistValidator {
	if ttl <= 0 {
		ttl = defaultWhitelistTTL
	}
	return &WhitelistValidator{store: store, ttl: ttl}
}

// IsValid reports whether (identifierA, identifierB) is a whitelisted
// destination for the rail. Textual identifiers (bank name, coin symbol)
// compare case-insensitively; the secondary identifier (account number,
// address) compares exactly after trimming surrounding whitespace.
func (v *WhitelistValidator) IsValid(ctx context.Context, method, identifierA, identifierB string) bool {
	identifierA = strings.TrimSpace(identifierA)
	identifierB = strings.TrimSpace(identifierB)
	if identifierA == "" || identifierB == "" {
		return false
	}

	banks, wallets, ok := v.snapshot(ctx)
	if !ok {
		return false
	}

	switch method {
	case domain.MethodBank:
		for _, entry := range banks {
			if strings.EqualFold(strings.TrimSpace(entry.BankName), identifierA) &&
				strings.TrimSpace(entry.AccountNumber) == identifierB {
				return true
			}
		}
	case domain.MethodCrypto:
		for _, entry := range wallets {
			if strings.EqualFold(strings.TrimSpace(entry.Coin), identifierA) &&
				strings.TrimSpace(entry.Address) == identifierB {
				return true
			}
		}
	}
	return false
}

// Invalidate drops the cached snapshot so the next validation re-reads the
// whitelist, e.g. right after an administrator edits it.
func (v *WhitelistValidator) Invalidate() {
	v.mu.Lock()
	v.refreshed = time.Time{}
	v.mu.Unlock()
}

func (v *WhitelistValidator) snapshot(ctx context.Context) ([]models.BankWhitelistEntry, []models.WalletWhitelistEntry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.refreshed) < v.ttl {
		return v.banks, v.wallets, true
	}

	q := v.store.Queries()
	banks, err := q.ListBankWhitelist(ctx)
	if err != nil {
		zap.L().Error("bank whitelist read failed", zap.Error(err))
		return nil, nil, false
	}
	wallets, err := q.ListWalletWhitelist(ctx)
	if err != nil {
		zap.L().Error("wallet whitelist read failed", zap.Error(err))
		return nil, nil, false
	}

	v.banks = banks
	v.wallets = wallets
	v.refreshed = time.Now()
	return v.banks, v.wallets, true
}
