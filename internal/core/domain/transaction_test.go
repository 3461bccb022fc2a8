package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Lifecycle(t *testing.T) {
	start := time.Now().UTC()
	txn := NewTransaction("user-1", OperationWithdrawal, d("40"), CurrencyKES, start)

	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.False(t, txn.IsTerminal())
	assert.Nil(t, txn.CompletedAt)

	done := start.Add(time.Millisecond)
	txn.Complete(done)

	assert.Equal(t, TransactionStatusCompleted, txn.Status)
	assert.True(t, txn.IsTerminal())
	require.NotNil(t, txn.CompletedAt)
	assert.Equal(t, done, *txn.CompletedAt)
}

func TestTransaction_FailRecordsReason(t *testing.T) {
	start := time.Now().UTC()
	txn := NewTransaction("user-1", OperationWithdrawal, d("40"), CurrencyKES, start)

	txn.Fail(start.Add(time.Millisecond), "LED_001")

	assert.Equal(t, TransactionStatusFailed, txn.Status)
	assert.True(t, txn.IsTerminal())
	require.NotNil(t, txn.Error)
	assert.Equal(t, "LED_001", *txn.Error)
}
