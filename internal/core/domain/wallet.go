package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletStatus is the lifecycle state of a wallet. Wallets are never
// deleted; deactivation is a status transition.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusFrozen    WalletStatus = "frozen"
)

// WindowDateLayout formats the daily-usage window date (wallet-local calendar day).
const WindowDateLayout = "2006-01-02"

// PinState holds the transaction-PIN sub-record. The hash is an encoded
// argon2id string and is never exposed through wallet views.
type PinState struct {
	Hash        *string    `json:"hash"`
	Attempts    int        `json:"attempts"`
	LockedUntil *time.Time `json:"locked_until"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

// IsSet reports whether a transaction PIN has been configured.
func (p PinState) IsSet() bool {
	return p.Hash != nil && *p.Hash != ""
}

// LockedAt reports whether the PIN is locked out at the given instant.
// An elapsed lock is implicitly lifted; no unlock event is persisted.
func (p PinState) LockedAt(now time.Time) bool {
	return p.LockedUntil != nil && now.Before(*p.LockedUntil)
}

// DailyLimits holds per-bucket, per-currency daily spending ceilings.
// A currency with no entry is unlimited for that bucket.
type DailyLimits struct {
	Withdrawal map[Currency]decimal.Decimal `json:"withdrawal"`
	Transfer   map[Currency]decimal.Decimal `json:"transfer"`
}

// Limit returns the configured ceiling for a bucket/currency pair.
func (l DailyLimits) Limit(bucket LimitBucket, c Currency) (decimal.Decimal, bool) {
	m := l.Withdrawal
	if bucket == LimitBucketTransfer {
		m = l.Transfer
	}
	limit, ok := m[c]
	return limit, ok
}

// DailyUsage tracks amount spent per bucket/currency inside one calendar-day
// window. The window rolls forward lazily on access.
type DailyUsage struct {
	WindowDate string                       `json:"window_date"`
	Withdrawal map[Currency]decimal.Decimal `json:"withdrawal"`
	Transfer   map[Currency]decimal.Decimal `json:"transfer"`
}

// RolloverIfStale zeroes the usage counters when the window date is not
// today. Returns true if a rollover happened.
func (u *DailyUsage) RolloverIfStale(today string) bool {
	if u.WindowDate == today {
		return false
	}
	u.WindowDate = today
	u.Withdrawal = map[Currency]decimal.Decimal{}
	u.Transfer = map[Currency]decimal.Decimal{}
	return true
}

// Used returns the amount already consumed for a bucket/currency pair.
func (u *DailyUsage) Used(bucket LimitBucket, c Currency) decimal.Decimal {
	return u.bucket(bucket)[c]
}

// Add records consumed limit budget. Callers roll the window first.
func (u *DailyUsage) Add(bucket LimitBucket, c Currency, amount decimal.Decimal) {
	m := u.bucket(bucket)
	m[c] = m[c].Add(amount)
}

func (u *DailyUsage) bucket(bucket LimitBucket) map[Currency]decimal.Decimal {
	if bucket == LimitBucketTransfer {
		if u.Transfer == nil {
			u.Transfer = map[Currency]decimal.Decimal{}
		}
		return u.Transfer
	}
	if u.Withdrawal == nil {
		u.Withdrawal = map[Currency]decimal.Decimal{}
	}
	return u.Withdrawal
}

// Statistics holds cumulative per-wallet counters derived from committed
// ledger operations. The wallet never embeds transaction records.
type Statistics struct {
	TotalDeposits     map[Currency]decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  map[Currency]decimal.Decimal `json:"total_withdrawals"`
	TotalEarnings     map[Currency]decimal.Decimal `json:"total_earnings"`
	TotalTransactions int64                        `json:"total_transactions"`
	LastTransactionAt *time.Time                   `json:"last_transaction_at"`
}

// Wallet is the per-user ledger document. One wallet per user id, created
// lazily on first access.
type Wallet struct {
	UserID         string                       `json:"user_id"`
	Balances       map[Currency]decimal.Decimal `json:"balances"`
	LockedBalances map[Currency]decimal.Decimal `json:"locked_balances"`
	Pin            PinState                     `json:"pin"`
	DailyLimits    DailyLimits                  `json:"daily_limits"`
	DailyUsage     DailyUsage                   `json:"daily_usage"`
	Statistics     Statistics                   `json:"statistics"`
	Status         WalletStatus                 `json:"status"`
	StatusReason   *string                      `json:"status_reason"`
	FrozenUntil    *time.Time                   `json:"frozen_until"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`

	// Version is the persistence concurrency token used for conditional
	// upserts. It is managed by the storage adapter, not the ledger.
	Version int64 `json:"-"`
}

// NewWallet builds a default wallet: zero balances for the given currencies,
// unset PIN, provided default limits, active status.
func NewWallet(userID string, currencies []Currency, limits DailyLimits, now time.Time) *Wallet {
	balances := make(map[Currency]decimal.Decimal, len(currencies))
	locked := make(map[Currency]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		balances[c] = decimal.Zero
		locked[c] = decimal.Zero
	}
	return &Wallet{
		UserID:         userID,
		Balances:       balances,
		LockedBalances: locked,
		Pin:            PinState{},
		DailyLimits:    limits,
		DailyUsage: DailyUsage{
			WindowDate: now.Format(WindowDateLayout),
			Withdrawal: map[Currency]decimal.Decimal{},
			Transfer:   map[Currency]decimal.Decimal{},
		},
		Statistics: Statistics{
			TotalDeposits:    map[Currency]decimal.Decimal{},
			TotalWithdrawals: map[Currency]decimal.Decimal{},
			TotalEarnings:    map[Currency]decimal.Decimal{},
		},
		Status:    WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Balance returns the spendable balance for a currency (zero if absent).
func (w *Wallet) Balance(c Currency) decimal.Decimal {
	return w.Balances[c]
}

// Credit adds amount to the currency balance and updates the matching
// cumulative statistics for the given credit operation type.
func (w *Wallet) Credit(op OperationType, c Currency, amount decimal.Decimal) {
	if w.Balances == nil {
		w.Balances = map[Currency]decimal.Decimal{}
	}
	w.Balances[c] = w.Balances[c].Add(amount)
	if w.Statistics.TotalDeposits == nil {
		w.Statistics.TotalDeposits = map[Currency]decimal.Decimal{}
	}
	w.Statistics.TotalDeposits[c] = w.Statistics.TotalDeposits[c].Add(amount)
	if op == OperationEarning {
		if w.Statistics.TotalEarnings == nil {
			w.Statistics.TotalEarnings = map[Currency]decimal.Decimal{}
		}
		w.Statistics.TotalEarnings[c] = w.Statistics.TotalEarnings[c].Add(amount)
	}
}

// Debit subtracts amount from the currency balance. It returns false and
// leaves the wallet untouched when funds are insufficient; balances never
// go negative.
func (w *Wallet) Debit(c Currency, amount decimal.Decimal) bool {
	if w.Balances[c].LessThan(amount) {
		return false
	}
	w.Balances[c] = w.Balances[c].Sub(amount)
	if w.Statistics.TotalWithdrawals == nil {
		w.Statistics.TotalWithdrawals = map[Currency]decimal.Decimal{}
	}
	w.Statistics.TotalWithdrawals[c] = w.Statistics.TotalWithdrawals[c].Add(amount)
	return true
}

// Touch stamps the cumulative transaction counters after a committed mutation.
func (w *Wallet) Touch(now time.Time) {
	w.Statistics.TotalTransactions++
	ts := now
	w.Statistics.LastTransactionAt = &ts
	w.UpdatedAt = now
}

// Clone returns a deep copy. Storage adapters hand out clones so callers
// never alias the stored document.
func (w *Wallet) Clone() *Wallet {
	cp := *w
	cp.Balances = cloneAmounts(w.Balances)
	cp.LockedBalances = cloneAmounts(w.LockedBalances)
	cp.DailyLimits = DailyLimits{
		Withdrawal: cloneAmounts(w.DailyLimits.Withdrawal),
		Transfer:   cloneAmounts(w.DailyLimits.Transfer),
	}
	cp.DailyUsage = DailyUsage{
		WindowDate: w.DailyUsage.WindowDate,
		Withdrawal: cloneAmounts(w.DailyUsage.Withdrawal),
		Transfer:   cloneAmounts(w.DailyUsage.Transfer),
	}
	cp.Statistics.TotalDeposits = cloneAmounts(w.Statistics.TotalDeposits)
	cp.Statistics.TotalWithdrawals = cloneAmounts(w.Statistics.TotalWithdrawals)
	cp.Statistics.TotalEarnings = cloneAmounts(w.Statistics.TotalEarnings)
	cp.Pin.Hash = cloneString(w.Pin.Hash)
	cp.Pin.LockedUntil = cloneTime(w.Pin.LockedUntil)
	cp.Pin.LastUsedAt = cloneTime(w.Pin.LastUsedAt)
	cp.StatusReason = cloneString(w.StatusReason)
	cp.FrozenUntil = cloneTime(w.FrozenUntil)
	cp.Statistics.LastTransactionAt = cloneTime(w.Statistics.LastTransactionAt)
	return &cp
}

func cloneAmounts(m map[Currency]decimal.Decimal) map[Currency]decimal.Decimal {
	if m == nil {
		return nil
	}
	cp := make(map[Currency]decimal.Decimal, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
