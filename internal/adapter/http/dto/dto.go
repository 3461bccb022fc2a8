package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
)

// --- Requests ---

// SetPinRequest sets or replaces the transaction PIN.
type SetPinRequest struct {
	Pin string `json:"pin" binding:"required,txn_pin"`
}

// VerifyPinRequest checks a candidate PIN without moving money.
type VerifyPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// OperationRequest applies one ledger mutation to the caller's wallet.
// Amount travels as a decimal string; floats never touch money.
type OperationRequest struct {
	Type           string `json:"type" binding:"required,ledger_op"`
	Amount         string `json:"amount" binding:"required,money"`
	Currency       string `json:"currency" binding:"required,currency_code"`
	Pin            string `json:"pin" binding:"omitempty"`
	IdempotencyKey string `json:"idempotency_key" binding:"omitempty,max=128"`
}

// TransferRequest moves funds from the caller to another user.
type TransferRequest struct {
	ToUserID string `json:"to_user_id" binding:"required,max=128"`
	Amount   string `json:"amount" binding:"required,money"`
	Currency string `json:"currency" binding:"required,currency_code"`
	Pin      string `json:"pin" binding:"omitempty"`
}

// ListTransactionsQuery filters the transaction log, newest first.
type ListTransactionsQuery struct {
	Type           string `form:"type" binding:"omitempty,ledger_op"`
	Status         string `form:"status" binding:"omitempty,oneof=pending completed failed"`
	From           string `form:"from" binding:"omitempty"` // RFC 3339
	To             string `form:"to" binding:"omitempty"`   // RFC 3339
	IncludePending bool   `form:"include_pending"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToParams converts the query into repository list parameters.
func (q ListTransactionsQuery) ToParams(userID string) (ports.TransactionListParams, error) {
	params := ports.TransactionListParams{
		UserID:         userID,
		IncludePending: q.IncludePending,
		Page:           q.Page,
		PageSize:       q.PageSize,
	}
	if q.Type != "" {
		t := domain.OperationType(q.Type)
		params.Type = &t
	}
	if q.Status != "" {
		s := domain.TransactionStatus(q.Status)
		params.Status = &s
	}
	if q.From != "" {
		from, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return params, err
		}
		params.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return params, err
		}
		params.To = &to
	}
	return params, nil
}

// --- Responses ---

// TransactionResponse is the wire shape of one log entry.
type TransactionResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        string     `json:"type"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	InitiatedAt time.Time  `json:"initiated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OperationResponse pairs the committed entry with the resulting balance.
type OperationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     string              `json:"balance"`
}

// TransferResponse reports both halves of a committed transfer.
type TransferResponse struct {
	Debit         TransactionResponse `json:"debit"`
	Credit        TransactionResponse `json:"credit"`
	SenderBalance string              `json:"sender_balance"`
}

// TransactionListResponse is a paginated slice of log entries.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// FromTransaction maps a domain log entry to its wire shape.
func FromTransaction(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID.String(),
		UserID:      t.UserID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Currency:    t.Currency.String(),
		Status:      string(t.Status),
		Error:       t.Error,
		InitiatedAt: t.InitiatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// FromResult maps a committed operation result to its wire shape.
func FromResult(r *ports.TransactionResult) OperationResponse {
	return OperationResponse{
		Transaction: FromTransaction(r.Transaction),
		Balance:     r.Balance.String(),
	}
}

// FromTransferResult maps a committed transfer to its wire shape.
func FromTransferResult(r *ports.TransferResult) TransferResponse {
	return TransferResponse{
		Debit:         FromTransaction(r.Debit),
		Credit:        FromTransaction(r.Credit),
		SenderBalance: r.SenderBalance.String(),
	}
}
