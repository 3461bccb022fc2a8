package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ledger log entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one append-only entry in the ledger log. Created once per
// ledger attempt and immutable after a terminal status is set.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	UserID      string            `json:"user_id"`
	Type        OperationType     `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    Currency          `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Error       *string           `json:"error,omitempty"`
	InitiatedAt time.Time         `json:"initiated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// NewTransaction creates a pending entry for a ledger attempt.
func NewTransaction(userID string, op OperationType, amount decimal.Decimal, c Currency, now time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        op,
		Amount:      amount,
		Currency:    c,
		Status:      TransactionStatusPending,
		InitiatedAt: now,
	}
}

// Complete marks the entry successful.
func (t *Transaction) Complete(now time.Time) {
	t.Status = TransactionStatusCompleted
	ts := now
	t.CompletedAt = &ts
}

// Fail marks the entry failed and records the error kind.
func (t *Transaction) Fail(now time.Time, reason string) {
	t.Status = TransactionStatusFailed
	ts := now
	t.CompletedAt = &ts
	t.Error = &reason
}

// IsTerminal reports whether the entry reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}
