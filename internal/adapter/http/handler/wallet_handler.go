package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler exposes the ledger core over HTTP.
type WalletHandler struct {
	svc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc ports.LedgerService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GetWallet handles GET /api/v1/wallet. Creates the wallet on first touch.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	view, err := h.svc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SetPin handles PUT /api/v1/wallet/pin.
func (h *WalletHandler) SetPin(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "pin must be 4-6 digits")
		return
	}

	if err := h.svc.SetTransactionPin(c.Request.Context(), userID, req.Pin); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pin_set": true})
}

// VerifyPin handles POST /api/v1/wallet/pin/verify. A mismatch is a coded
// error, not a 200 with false, so attempt accounting stays server-side.
func (h *WalletHandler) VerifyPin(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.VerifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "pin is required")
		return
	}

	matched, err := h.svc.VerifyTransactionPin(c.Request.Context(), userID, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !matched {
		response.Error(c, apperror.ErrPinMismatch())
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// ApplyOperation handles POST /api/v1/wallet/operations: deposits,
// earnings, bonuses, withdrawals, payments and penalties.
func (h *WalletHandler) ApplyOperation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.ValidationError(c, "amount must be a positive decimal")
		return
	}

	opType := domain.OperationType(req.Type)
	result, err := h.svc.ApplyLedgerOperation(c.Request.Context(), ports.ApplyRequest{
		UserID:         userID,
		Amount:         amount,
		Currency:       domain.ParseCurrency(req.Currency),
		Type:           opType,
		// Debits are PIN-guarded once a PIN exists; the core skips the
		// check for wallets that never set one.
		RequirePin:     opType.IsDebit(),
		Pin:            req.Pin,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto.FromResult(result))
}

// Transfer handles POST /api/v1/transfers.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.ValidationError(c, "amount must be a positive decimal")
		return
	}

	result, err := h.svc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromUserID: userID,
		ToUserID:   req.ToUserID,
		Amount:     amount,
		Currency:   domain.ParseCurrency(req.Currency),
		RequirePin: true,
		Pin:        req.Pin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto.FromTransferResult(result))
}

// ListTransactions handles GET /api/v1/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var query dto.ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params, err := query.ToParams(userID)
	if err != nil {
		response.ValidationError(c, "from/to must be RFC 3339 timestamps")
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	transactions, total, err := h.svc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, dto.FromTransaction(t))
	}

	response.Success(c, http.StatusOK, dto.TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         params.Page,
		PageSize:     params.PageSize,
	})
}
