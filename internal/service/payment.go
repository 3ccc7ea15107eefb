package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/notify"
	"github.com/nairatrade/deposits/internal/settings"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingMinDeposit is the platform setting holding the minimum accepted
// deposit amount in major units.
const SettingMinDeposit = "deposits.min_amount"

// PaymentService creates deposit intents. Creation persists a PENDING row
// and, for the gateway rails, obtains a checkout handle; it never touches
// a balance.
type PaymentService struct {
	store     QueryStore
	validator *WhitelistValidator
	settings  *settings.Store
	gateways  map[string]gateway.Gateway
	notifier  notify.Dispatcher
}

func NewPaymentService(store QueryStore, validator *WhitelistValidator, settingsStore *settings.Store, gateways map[string]gateway.Gateway, notifier notify.Dispatcher) *PaymentService {
	if notifier == nil {
		notifier = notify.NopDispatcher{}
	}
	return &PaymentService{
		store:     store,
		validator: validator,
		settings:  settingsStore,
		gateways:  gateways,
		notifier:  notifier,
	}
}

// BankDepositRequest is a manual bank-transfer deposit.
type BankDepositRequest struct {
	UserID        uuid.UUID
	AccountID     uuid.UUID // optional; defaults to the user's wallet account
	Amount        decimal.Decimal
	BankName      string
	AccountNumber string
}

// CryptoDepositRequest is a manual on-chain deposit.
type CryptoDepositRequest struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Coin      string
	Address   string
}

// GatewayDepositRequest is a card or mobile-money deposit.
type GatewayDepositRequest struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Email     string
	Currency  string
}

func (s *PaymentService) CreateBankDeposit(ctx context.Context, req BankDepositRequest) (*models.Payment, error) {
	if err := s.checkAmount(ctx, req.Amount); err != nil {
		return nil, err
	}
	if !s.validator.IsValid(ctx, domain.MethodBank, req.BankName, req.AccountNumber) {
		return nil, ErrInvalidDestination
	}

	p := &models.Payment{
		Method:        domain.MethodBank,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	}
	if err := s.createPending(ctx, p, req.UserID, req.AccountID, req.Amount); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) CreateCryptoDeposit(ctx context.Context, req CryptoDepositRequest) (*models.Payment, error) {
	if err := s.checkAmount(ctx, req.Amount); err != nil {
		return nil, err
	}
	if !s.validator.IsValid(ctx, domain.MethodCrypto, req.Coin, req.Address) {
		return nil, ErrInvalidDestination
	}

	p := &models.Payment{
		Method:  domain.MethodCrypto,
		Coin:    req.Coin,
		Address: req.Address,
	}
	if err := s.createPending(ctx, p, req.UserID, req.AccountID, req.Amount); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) CreateCardDeposit(ctx context.Context, req GatewayDepositRequest) (*models.Payment, error) {
	return s.createGatewayDeposit(ctx, domain.MethodCard, req)
}

func (s *PaymentService) CreateMomoDeposit(ctx context.Context, req GatewayDepositRequest) (*models.Payment, error) {
	return s.createGatewayDeposit(ctx, domain.MethodMomo, req)
}

// createGatewayDeposit persists the PENDING row first, then asks the
// provider for a checkout. A provider failure keeps the row: the record of
// an attempted deposit must never silently disappear, and the expiry
// worker will resolve or cancel it later.
func (s *PaymentService) createGatewayDeposit(ctx context.Context, method string, req GatewayDepositRequest) (*models.Payment, error) {
	if err := s.checkAmount(ctx, req.Amount); err != nil {
		return nil, err
	}
	gw, ok := s.gateways[method]
	if !ok {
		return nil, ErrUnsupportedMethod
	}

	p := &models.Payment{Method: method}
	if err := s.createPending(ctx, p, req.UserID, req.AccountID, req.Amount); err != nil {
		return nil, err
	}

	checkout, err := gw.CreateCheckout(ctx, gateway.CheckoutRequest{
		TxRef:    p.TxRef,
		Email:    req.Email,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		zap.L().Error("gateway checkout failed; pending row kept for reconciliation",
			zap.Error(err), zap.String("tx_ref", p.TxRef), zap.String("rail", method))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamProvider, err)
	}

	rows, err := s.store.Queries().SetPaymentCheckout(ctx, p.TxRef, checkout.GatewayRef, checkout.CheckoutURL)
	if err != nil {
		return nil, fmt.Errorf("attach checkout to %s: %w", p.TxRef, err)
	}
	if err := requireExactlyOne(rows, "attach checkout"); err != nil {
		return nil, err
	}
	p.GatewayRef = checkout.GatewayRef
	p.CheckoutURL = checkout.CheckoutURL
	return p, nil
}

func (s *PaymentService) createPending(ctx context.Context, p *models.Payment, userID, accountID uuid.UUID, amount decimal.Decimal) error {
	account, err := s.resolveAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}

	p.ID = uuid.New()
	p.UserID = userID
	p.AccountID = account.ID
	p.Amount = amount
	p.TxRef = NewTxRef(p.Method)
	p.Status = domain.StatusPending

	if err := s.store.Queries().InsertPayment(ctx, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if err := s.notifier.Dispatch(ctx, notify.Event{
		Type:   notify.EventDepositPending,
		UserID: p.UserID,
		TxRef:  p.TxRef,
		Method: p.Method,
		Amount: p.Amount,
	}); err != nil {
		zap.L().Warn("pending notification failed", zap.Error(err), zap.String("tx_ref", p.TxRef))
	}
	return nil
}

func (s *PaymentService) resolveAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.TradingAccount, error) {
	q := s.store.Queries()
	if accountID == uuid.Nil {
		account, err := q.GetWalletAccountByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve wallet account for %s: %w", userID, err)
		}
		return account, nil
	}

	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return account, nil
}

func (s *PaymentService) checkAmount(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if s.settings == nil {
		return nil
	}
	min, err := s.settings.GetDecimal(ctx, SettingMinDeposit, decimal.Zero)
	if err != nil {
		zap.L().Warn("minimum deposit setting unavailable", zap.Error(err))
		return nil
	}
	if amount.LessThan(min) {
		return ErrAmountBelowMinimum
	}
	return nil
}

// Get returns a payment by reference, scoped to its owner unless the
// caller is an administrator.
func (s *PaymentService) Get(ctx context.Context, txRef string, userID uuid.UUID, isAdmin bool) (*models.Payment, error) {
	p, err := s.store.Queries().GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment %s: %w", txRef, err)
	}
	if !isAdmin && p.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// Cancel moves a PENDING payment to CANCELLED. The update predicate
// restricts the prior status, so a finalization racing this call wins
// cleanly. A cancelled payment may still be finalized by a late provider
// confirmation.
func (s *PaymentService) Cancel(ctx context.Context, txRef string, userID uuid.UUID, isAdmin bool) (*models.Payment, error) {
	p, err := s.Get(ctx, txRef, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Queries().CancelPayment(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("cancel payment %s: %w", txRef, err)
	}
	if rows == 0 {
		return nil, ErrNotCancellable
	}

	p.Status = domain.StatusCancelled
	if err := s.notifier.Dispatch(ctx, notify.Event{
		Type:   notify.EventDepositCancelled,
		UserID: p.UserID,
		TxRef:  p.TxRef,
		Method: p.Method,
		Amount: p.Amount,
	}); err != nil {
		zap.L().Warn("cancel notification failed", zap.Error(err), zap.String("tx_ref", txRef))
	}
	return p, nil
}
