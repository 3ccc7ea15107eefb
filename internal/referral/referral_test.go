package referral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHTTPCascadeApply(t *testing.T) {
	var got applyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	userID := uuid.New()
	amount := decimal.RequireFromString("5000")
	cascade := NewHTTPCascade(srv.URL, 2*time.Second)

	require.NoError(t, cascade.Apply(context.Background(), userID, amount, "DEP-BNK-REF1"))
	require.Equal(t, userID, got.UserID)
	require.True(t, got.Amount.Equal(amount))
	require.Equal(t, "DEP-BNK-REF1", got.TxRef)
}

func TestHTTPCascadeApplyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cascade := NewHTTPCascade(srv.URL, 2*time.Second)
	err := cascade.Apply(context.Background(), uuid.New(), decimal.RequireFromString("1"), "DEP-BNK-REF2")
	require.Error(t, err)
}
