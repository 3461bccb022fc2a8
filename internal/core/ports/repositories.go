package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
)

// WalletRepository is the persistence port for wallet documents. The wallet
// is a single keyed document: either the whole updated document lands or
// none of it does.
type WalletRepository interface {
	// GetOrCreate loads the wallet for userID, creating it with the given
	// factory if absent. Idempotent; concurrent creators observe one wallet.
	GetOrCreate(ctx context.Context, userID string, create func() *domain.Wallet) (*domain.Wallet, error)

	// Get loads the latest persisted snapshot without creating. Returns
	// nil, nil when no wallet exists. Used by lock-free balance reads.
	Get(ctx context.Context, userID string) (*domain.Wallet, error)

	// Save upserts the whole document conditionally on w.Version and bumps
	// the version on success. A version mismatch yields SYS_002.
	Save(ctx context.Context, w *domain.Wallet) error
}

// TransactionRepository is the append-only ledger log. Entries are created
// pending and finalized exactly once; they are never mutated afterwards.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	Finalize(ctx context.Context, t *domain.Transaction) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing log entries,
// newest first. Downstream analytics consumers must only observe terminal
// entries, so pending rows are excluded unless IncludePending is set.
type TransactionListParams struct {
	UserID         string
	Type           *domain.OperationType
	Status         *domain.TransactionStatus
	From           *time.Time
	To             *time.Time
	IncludePending bool
	Page           int
	PageSize       int
}

// IdempotencyCache replays completed ledger results for retried requests
// instead of double-applying them.
type IdempotencyCache interface {
	// Get returns the cached result payload or nil when the key is unknown.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
