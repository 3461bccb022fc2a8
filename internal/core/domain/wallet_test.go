package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNewWallet_StartsActiveWithZeroBalances(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w := NewWallet("user-1", DefaultCurrencies, DailyLimits{}, now)

	assert.Equal(t, WalletStatusActive, w.Status)
	assert.False(t, w.Pin.IsSet())
	assert.Equal(t, "2026-03-10", w.DailyUsage.WindowDate)
	for _, c := range DefaultCurrencies {
		assert.True(t, w.Balance(c).IsZero(), "balance for %s", c)
	}
}

func TestWallet_CreditUpdatesStatistics(t *testing.T) {
	now := time.Now().UTC()
	w := NewWallet("user-1", DefaultCurrencies, DailyLimits{}, now)

	w.Credit(OperationDeposit, CurrencyKES, d("100.50"))
	w.Credit(OperationEarning, CurrencyKES, d("25.25"))

	assert.True(t, w.Balance(CurrencyKES).Equal(d("125.75")))
	assert.True(t, w.Statistics.TotalDeposits[CurrencyKES].Equal(d("125.75")))
	assert.True(t, w.Statistics.TotalEarnings[CurrencyKES].Equal(d("25.25")))
}

func TestWallet_DebitInsufficientLeavesStateUntouched(t *testing.T) {
	now := time.Now().UTC()
	w := NewWallet("user-1", DefaultCurrencies, DailyLimits{}, now)
	w.Credit(OperationDeposit, CurrencyUSD, d("50"))

	ok := w.Debit(CurrencyUSD, d("50.01"))

	assert.False(t, ok)
	assert.True(t, w.Balance(CurrencyUSD).Equal(d("50")))
	assert.True(t, w.Statistics.TotalWithdrawals[CurrencyUSD].IsZero())
}

func TestWallet_DebitExactBalanceGoesToZero(t *testing.T) {
	now := time.Now().UTC()
	w := NewWallet("user-1", DefaultCurrencies, DailyLimits{}, now)
	w.Credit(OperationDeposit, CurrencyUSD, d("50"))

	require.True(t, w.Debit(CurrencyUSD, d("50")))
	assert.True(t, w.Balance(CurrencyUSD).IsZero())
}

func TestWallet_CloneIsDeep(t *testing.T) {
	now := time.Now().UTC()
	w := NewWallet("user-1", DefaultCurrencies, DailyLimits{
		Withdrawal: map[Currency]decimal.Decimal{CurrencyKES: d("100000")},
	}, now)
	hash := "argon2-hash"
	w.Pin.Hash = &hash
	w.Credit(OperationDeposit, CurrencyKES, d("10"))

	cp := w.Clone()
	cp.Balances[CurrencyKES] = d("999")
	*cp.Pin.Hash = "mutated"
	cp.DailyLimits.Withdrawal[CurrencyKES] = d("1")
	cp.DailyUsage.Add(LimitBucketWithdrawal, CurrencyKES, d("5"))

	assert.True(t, w.Balance(CurrencyKES).Equal(d("10")))
	assert.Equal(t, "argon2-hash", *w.Pin.Hash)
	assert.True(t, w.DailyLimits.Withdrawal[CurrencyKES].Equal(d("100000")))
	assert.True(t, w.DailyUsage.Used(LimitBucketWithdrawal, CurrencyKES).IsZero())
}

func TestDailyUsage_RolloverResetsCounters(t *testing.T) {
	u := DailyUsage{WindowDate: "2026-03-10"}
	u.Add(LimitBucketWithdrawal, CurrencyKES, d("500"))

	rolled := u.RolloverIfStale("2026-03-10")
	assert.False(t, rolled)
	assert.True(t, u.Used(LimitBucketWithdrawal, CurrencyKES).Equal(d("500")))

	rolled = u.RolloverIfStale("2026-03-11")
	assert.True(t, rolled)
	assert.Equal(t, "2026-03-11", u.WindowDate)
	assert.True(t, u.Used(LimitBucketWithdrawal, CurrencyKES).IsZero())
}

func TestPinState_LockedAt(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(15 * time.Minute)
	p := PinState{LockedUntil: &until}

	assert.True(t, p.LockedAt(now))
	assert.True(t, p.LockedAt(until.Add(-time.Second)))
	assert.False(t, p.LockedAt(until))
	assert.False(t, p.LockedAt(until.Add(time.Second)))
	assert.False(t, PinState{}.LockedAt(now))
}

func TestOperationType_LimitBucket(t *testing.T) {
	bucket, limited := OperationWithdrawal.LimitBucket()
	assert.True(t, limited)
	assert.Equal(t, LimitBucketWithdrawal, bucket)

	bucket, limited = OperationTransfer.LimitBucket()
	assert.True(t, limited)
	assert.Equal(t, LimitBucketTransfer, bucket)

	for _, op := range []OperationType{OperationDeposit, OperationEarning, OperationBonus, OperationPayment, OperationPenalty} {
		_, limited := op.LimitBucket()
		assert.False(t, limited, "operation %s should be unlimited", op)
	}
}
