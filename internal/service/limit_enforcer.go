package service

import (
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

// LimitEnforcer tracks per-currency, per-bucket daily usage against the
// wallet's configured ceilings. The usage window is the wallet-local
// calendar day and rolls forward lazily on access.
type LimitEnforcer struct {
	clock ports.Clock
}

// NewLimitEnforcer creates a LimitEnforcer.
func NewLimitEnforcer(clock ports.Clock) *LimitEnforcer {
	return &LimitEnforcer{clock: clock}
}

// CheckDailyLimit verifies that adding amount to today's usage stays within
// the configured ceiling. The boundary is inclusive: projected == limit
// passes, only strictly-exceeding requests fail. Usage is not consumed
// here; RecordUsage runs after the mutation succeeds.
func (e *LimitEnforcer) CheckDailyLimit(w *domain.Wallet, amount decimal.Decimal, c domain.Currency, bucket domain.LimitBucket) error {
	e.rollover(w)

	limit, ok := w.DailyLimits.Limit(bucket, c)
	if !ok {
		return nil // no ceiling configured for this currency
	}

	projected := w.DailyUsage.Used(bucket, c).Add(amount)
	if projected.GreaterThan(limit) {
		return apperror.ErrDailyLimitExceeded(string(bucket), c.String())
	}
	return nil
}

// RecordUsage consumes limit budget. Called only after the guarded mutation
// has succeeded, so a failed mutation never consumes budget.
func (e *LimitEnforcer) RecordUsage(w *domain.Wallet, amount decimal.Decimal, c domain.Currency, bucket domain.LimitBucket) {
	e.rollover(w)
	w.DailyUsage.Add(bucket, c, amount)
}

func (e *LimitEnforcer) rollover(w *domain.Wallet) {
	today := e.clock.Now().Format(domain.WindowDateLayout)
	w.DailyUsage.RolloverIfStale(today)
}
