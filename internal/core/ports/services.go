package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// HashService hashes transaction PINs with a slow, salted one-way function.
type HashService interface {
	Hash(pin string) (string, error)
	Verify(pin string, hash string) (bool, error)
}

// TokenService validates bearer tokens issued by the external auth layer
// and extracts the trusted user id. The ledger never manages sessions.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (string, error)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the external interface of the wallet ledger core.
type LedgerService interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*WalletView, error)
	SetTransactionPin(ctx context.Context, userID string, plainPin string) error
	// VerifyTransactionPin returns false on mismatch and an error when the
	// PIN is locked rather than silently returning false.
	VerifyTransactionPin(ctx context.Context, userID string, plainPin string) (bool, error)
	ApplyLedgerOperation(ctx context.Context, req ApplyRequest) (*TransactionResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// ApplyRequest holds validated input for one guarded ledger mutation.
type ApplyRequest struct {
	UserID         string
	Amount         decimal.Decimal
	Currency       domain.Currency
	Type           domain.OperationType
	RequirePin     bool
	Pin            string
	IdempotencyKey string // optional; blank disables replay protection
}

// TransactionResult is the committed outcome of a ledger operation.
type TransactionResult struct {
	Transaction domain.Transaction `json:"transaction"`
	Balance     decimal.Decimal    `json:"balance"` // post-mutation balance for the currency
}

// TransferRequest moves funds between two user wallets: a transfer debit on
// the sender and a deposit credit on the recipient.
type TransferRequest struct {
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
	Currency   domain.Currency
	RequirePin bool
	Pin        string
}

// TransferResult holds both halves of a committed transfer.
type TransferResult struct {
	Debit         domain.Transaction `json:"debit"`
	Credit        domain.Transaction `json:"credit"`
	SenderBalance decimal.Decimal    `json:"sender_balance"`
}

// WalletView is the caller-facing wallet projection. It never carries the
// PIN hash.
type WalletView struct {
	UserID         string                                     `json:"user_id"`
	Balances       map[domain.Currency]decimal.Decimal        `json:"balances"`
	LockedBalances map[domain.Currency]decimal.Decimal        `json:"locked_balances"`
	Status         domain.WalletStatus                        `json:"status"`
	StatusReason   *string                                    `json:"status_reason,omitempty"`
	PinSet         bool                                       `json:"pin_set"`
	DailyLimits    domain.DailyLimits                         `json:"daily_limits"`
	DailyUsage     domain.DailyUsage                          `json:"daily_usage"`
	Statistics     domain.Statistics                          `json:"statistics"`
	CreatedAt      time.Time                                  `json:"created_at"`
	UpdatedAt      time.Time                                  `json:"updated_at"`
}

// NewWalletView projects a wallet for external callers.
func NewWalletView(w *domain.Wallet) *WalletView {
	cp := w.Clone()
	return &WalletView{
		UserID:         cp.UserID,
		Balances:       cp.Balances,
		LockedBalances: cp.LockedBalances,
		Status:         cp.Status,
		StatusReason:   cp.StatusReason,
		PinSet:         cp.Pin.IsSet(),
		DailyLimits:    cp.DailyLimits,
		DailyUsage:     cp.DailyUsage,
		Statistics:     cp.Statistics,
		CreatedAt:      cp.CreatedAt,
		UpdatedAt:      cp.UpdatedAt,
	}
}
