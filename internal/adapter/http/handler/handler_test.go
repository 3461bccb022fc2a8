package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router   *gin.Engine
	tokenSvc *service.JWTTokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	defaults := service.WalletDefaults{
		Currencies: domain.DefaultCurrencies,
		WithdrawalLimits: map[domain.Currency]decimal.Decimal{
			domain.CurrencyKES: decimal.NewFromInt(100000),
		},
		TransferLimits: map[domain.Currency]decimal.Decimal{
			domain.CurrencyKES: decimal.NewFromInt(100000),
		},
	}
	ledgerSvc := service.NewLedgerService(
		memory.NewWalletRepo(),
		memory.NewTransactionRepo(),
		nil,
		service.NewArgon2PinHasher(),
		ports.SystemClock(),
		defaults,
		zerolog.Nop(),
	)
	tokenSvc := service.NewJWTTokenService("test-secret", time.Hour, "wallet-ledger")

	router := SetupRouter(RouterDeps{
		LedgerSvc: ledgerSvc,
		TokenSvc:  tokenSvc,
		Logger:    zerolog.Nop(),
	})
	return &apiFixture{router: router, tokenSvc: tokenSvc}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := f.tokenSvc.Generate(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAPI_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_GetWalletCreatesOnFirstTouch(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/wallet", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var view struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
		PinSet bool   `json:"pin_set"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "user-1", view.UserID)
	assert.Equal(t, "active", view.Status)
	assert.False(t, view.PinSet)
}

func TestAPI_DepositAndWithdrawal(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "deposit", "amount": "100.50", "currency": "KES",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Once a PIN is set, withdrawals must carry it.
	w = f.do(t, http.MethodPut, "/api/v1/wallet/pin", "user-1", gin.H{"pin": "4821"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "withdrawal", "amount": "40.25", "currency": "KES", "pin": "4821",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	var result struct {
		Balance     string `json:"balance"`
		Transaction struct {
			Type   string `json:"type"`
			Status string `json:"status"`
			Amount string `json:"amount"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "60.25", result.Balance)
	assert.Equal(t, "withdrawal", result.Transaction.Type)
	assert.Equal(t, "completed", result.Transaction.Status)
}

func TestAPI_WithdrawalWithoutPinSet(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "deposit", "amount": "100", "currency": "KES",
	})

	// No PIN was ever set: debits go through without one.
	w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "withdrawal", "amount": "30", "currency": "KES",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	var result struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "70", result.Balance)
}

func TestAPI_WithdrawalWithWrongPin(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "deposit", "amount": "100", "currency": "KES",
	})
	f.do(t, http.MethodPut, "/api/v1/wallet/pin", "user-1", gin.H{"pin": "4821"})

	w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "withdrawal", "amount": "10", "currency": "KES", "pin": "0000",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodePinMismatch, env.Error.Code)
}

func TestAPI_InsufficientFunds(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPut, "/api/v1/wallet/pin", "user-1", gin.H{"pin": "4821"})
	w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
		"type": "withdrawal", "amount": "10", "currency": "KES", "pin": "4821",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeInsufficientFunds, env.Error.Code)
}

func TestAPI_MalformedAmountRejected(t *testing.T) {
	f := newAPIFixture(t)

	for _, amount := range []string{"abc", "-5", "0"} {
		w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
			"type": "deposit", "amount": amount, "currency": "KES",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q", amount)
	}
}

func TestAPI_Transfer(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/v1/wallet/operations", "alice", gin.H{
		"type": "deposit", "amount": "500", "currency": "KES",
	})
	f.do(t, http.MethodPut, "/api/v1/wallet/pin", "alice", gin.H{"pin": "4821"})

	w := f.do(t, http.MethodPost, "/api/v1/transfers", "alice", gin.H{
		"to_user_id": "bob", "amount": "200", "currency": "KES", "pin": "4821",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	var result struct {
		SenderBalance string `json:"sender_balance"`
		Credit        struct {
			UserID string `json:"user_id"`
		} `json:"credit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "300", result.SenderBalance)
	assert.Equal(t, "bob", result.Credit.UserID)

	w = f.do(t, http.MethodGet, "/api/v1/wallet", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Balances map[string]string `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &view))
	assert.Equal(t, "200", view.Balances["KES"])
}

func TestAPI_ListTransactions(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/wallet/operations", "user-1", gin.H{
			"type": "deposit", "amount": "10", "currency": "KES",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/v1/transactions?type=deposit", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var list struct {
		Transactions []struct {
			Type   string `json:"type"`
			Status string `json:"status"`
		} `json:"transactions"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Transactions, 3)
	for _, txn := range list.Transactions {
		assert.Equal(t, "completed", txn.Status)
	}
}

func TestAPI_HealthWithoutCheckers(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
