package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/models"
	"github.com/nairatrade/deposits/internal/service"
	"github.com/shopspring/decimal"
)

// PaymentHandler exposes the deposit lifecycle endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type bankDepositBody struct {
	Amount        string `json:"amount"`
	AccountID     string `json:"account_id,omitempty"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

type cryptoDepositBody struct {
	Amount    string `json:"amount"`
	AccountID string `json:"account_id,omitempty"`
	Coin      string `json:"coin"`
	Address   string `json:"address"`
}

type gatewayDepositBody struct {
	Amount    string `json:"amount"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email"`
	Currency  string `json:"currency,omitempty"`
}

// HandleBankDeposit handles POST /v1/deposits/bank.
func (h *PaymentHandler) HandleBankDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var body bankDepositBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid JSON body")
		return
	}
	amount, accountID, err := parseDepositCommon(body.Amount, body.AccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "deposits/invalid-amount", err.Error())
		return
	}

	p, err := h.payments.CreateBankDeposit(r.Context(), service.BankDepositRequest{
		UserID:        actorID,
		AccountID:     accountID,
		Amount:        amount,
		BankName:      body.BankName,
		AccountNumber: body.AccountNumber,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, depositResponse(p))
}

// HandleCryptoDeposit handles POST /v1/deposits/crypto.
func (h *PaymentHandler) HandleCryptoDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var body cryptoDepositBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid JSON body")
		return
	}
	amount, accountID, err := parseDepositCommon(body.Amount, body.AccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "deposits/invalid-amount", err.Error())
		return
	}

	p, err := h.payments.CreateCryptoDeposit(r.Context(), service.CryptoDepositRequest{
		UserID:    actorID,
		AccountID: accountID,
		Amount:    amount,
		Coin:      body.Coin,
		Address:   body.Address,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, depositResponse(p))
}

// HandleCardDeposit handles POST /v1/deposits/card.
func (h *PaymentHandler) HandleCardDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleGatewayDeposit(w, r, h.payments.CreateCardDeposit)
}

// HandleMomoDeposit handles POST /v1/deposits/momo.
func (h *PaymentHandler) HandleMomoDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleGatewayDeposit(w, r, h.payments.CreateMomoDeposit)
}

func (h *PaymentHandler) handleGatewayDeposit(
	w http.ResponseWriter,
	r *http.Request,
	create func(ctx context.Context, req service.GatewayDepositRequest) (*models.Payment, error),
) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var body gatewayDepositBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid JSON body")
		return
	}
	amount, accountID, err := parseDepositCommon(body.Amount, body.AccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "deposits/invalid-amount", err.Error())
		return
	}

	p, err := create(r.Context(), service.GatewayDepositRequest{
		UserID:    actorID,
		AccountID: accountID,
		Amount:    amount,
		Email:     body.Email,
		Currency:  body.Currency,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, depositResponse(p))
}

// HandleGetDeposit handles GET /v1/deposits/{txRef}.
func (h *PaymentHandler) HandleGetDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	txRef := chi.URLParam(r, "txRef")
	p, err := h.payments.Get(r.Context(), txRef, actorID, isAdmin)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, depositResponse(p))
}

// HandleCancelDeposit handles POST /v1/deposits/{txRef}/cancel.
func (h *PaymentHandler) HandleCancelDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	txRef := chi.URLParam(r, "txRef")
	p, err := h.payments.Cancel(r.Context(), txRef, actorID, isAdmin)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, depositResponse(p))
}

func parseDepositCommon(amountStr, accountStr string) (decimal.Decimal, uuid.UUID, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
	if err != nil {
		return decimal.Zero, uuid.Nil, errors.New("amount must be a decimal string")
	}
	accountID := uuid.Nil
	if accountStr != "" {
		accountID, err = uuid.Parse(accountStr)
		if err != nil {
			return decimal.Zero, uuid.Nil, errors.New("account_id must be a UUID")
		}
	}
	return amount, accountID, nil
}

func depositResponse(p *models.Payment) map[string]interface{} {
	resp := map[string]interface{}{
		"payment": p,
	}
	if p.CheckoutURL != "" {
		resp["checkout_url"] = p.CheckoutURL
	}
	return resp
}
