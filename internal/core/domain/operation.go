package domain

// OperationType represents the kind of money movement applied to a wallet.
type OperationType string

const (
	OperationDeposit    OperationType = "deposit"
	OperationEarning    OperationType = "earning"
	OperationBonus      OperationType = "bonus"
	OperationWithdrawal OperationType = "withdrawal"
	OperationPayment    OperationType = "payment"
	OperationPenalty    OperationType = "penalty"
	OperationTransfer   OperationType = "transfer"
)

// LimitBucket is the daily-limit bucket an operation draws from.
type LimitBucket string

const (
	LimitBucketWithdrawal LimitBucket = "withdrawal"
	LimitBucketTransfer   LimitBucket = "transfer"
)

// IsCredit reports whether the operation adds funds to the wallet.
func (t OperationType) IsCredit() bool {
	switch t {
	case OperationDeposit, OperationEarning, OperationBonus:
		return true
	}
	return false
}

// IsDebit reports whether the operation removes funds from the wallet.
func (t OperationType) IsDebit() bool {
	switch t {
	case OperationWithdrawal, OperationPayment, OperationPenalty, OperationTransfer:
		return true
	}
	return false
}

// Valid reports whether the operation type is one the ledger understands.
func (t OperationType) Valid() bool {
	return t.IsCredit() || t.IsDebit()
}

// LimitBucket returns the daily-limit bucket this operation consumes,
// or false for operations that are not limit-enforced.
func (t OperationType) LimitBucket() (LimitBucket, bool) {
	switch t {
	case OperationWithdrawal:
		return LimitBucketWithdrawal, true
	case OperationTransfer:
		return LimitBucketTransfer, true
	}
	return "", false
}
