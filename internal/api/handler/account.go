package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/service"
)

// AccountHandler exposes balance and statement reads.
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// HandleGetBalance handles GET /v1/accounts/{accountID}/balance.
func (h *AccountHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "account id must be a UUID")
		return
	}

	account, err := h.accounts.GetBalance(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if account.UserID != actorID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "deposits/not-found", "account not found")
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// HandleGetStatement handles GET /v1/accounts/{accountID}/statement.
func (h *AccountHandler) HandleGetStatement(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "account id must be a UUID")
		return
	}

	account, err := h.accounts.GetBalance(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if account.UserID != actorID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "deposits/not-found", "account not found")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)
	txs, err := h.accounts.GetStatement(r.Context(), accountID, page, pageSize)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   accountID,
		"page":         page,
		"page_size":    pageSize,
		"transactions": txs,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
