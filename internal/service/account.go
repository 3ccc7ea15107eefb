package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/models"
)

// AccountService exposes read access to trading accounts and their audit
// statements.
type AccountService struct {
	store QueryStore
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) GetBalance(ctx context.Context, accountID uuid.UUID) (*models.TradingAccount, error) {
	account, err := s.store.Queries().GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}
	return account, nil
}

// GetStatement pages through the account's wallet transactions, newest
// first.
func (s *AccountService) GetStatement(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.WalletTransaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	entries, err := s.store.Queries().ListWalletTransactions(ctx, accountID, int32(pageSize), int32(offset))
	if err != nil {
		return nil, fmt.Errorf("load statement for %s: %w", accountID, err)
	}
	return entries, nil
}
