// Package memory provides in-process implementations of the storage ports.
// They back unit tests and single-node deployments; semantics (clone on
// read, versioned conditional save) mirror the postgres adapter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
)

// WalletRepo implements ports.WalletRepository in memory.
type WalletRepo struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
}

// NewWalletRepo creates an empty in-memory wallet store.
func NewWalletRepo() *WalletRepo {
	return &WalletRepo{wallets: make(map[string]*domain.Wallet)}
}

// GetOrCreate loads or lazily creates the wallet. Concurrent creators
// observe a single wallet.
func (r *WalletRepo) GetOrCreate(_ context.Context, userID string, create func() *domain.Wallet) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		w = create()
		w.Version = 1
		r.wallets[userID] = w.Clone()
		return w, nil
	}
	return w.Clone(), nil
}

// Get returns the latest snapshot, or nil when no wallet exists.
func (r *WalletRepo) Get(_ context.Context, userID string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	return w.Clone(), nil
}

// Save upserts the whole document conditionally on the version token.
func (r *WalletRepo) Save(_ context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.wallets[w.UserID]
	if !ok {
		return apperror.ErrWalletNotFound(w.UserID)
	}
	if cur.Version != w.Version {
		return apperror.ErrConcurrencyConflict(
			fmt.Errorf("wallet %s: version %d does not match stored %d", w.UserID, w.Version, cur.Version))
	}
	w.Version++
	r.wallets[w.UserID] = w.Clone()
	return nil
}

// TransactionRepo implements ports.TransactionRepository in memory.
type TransactionRepo struct {
	mu      sync.RWMutex
	entries []domain.Transaction
	index   map[string]int // transaction id -> slice position
}

// NewTransactionRepo creates an empty in-memory transaction log.
func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{index: make(map[string]int)}
}

// Create appends a pending entry.
func (r *TransactionRepo) Create(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[t.ID.String()]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	r.index[t.ID.String()] = len(r.entries)
	r.entries = append(r.entries, *t)
	return nil
}

// Finalize sets the terminal status exactly once.
func (r *TransactionRepo) Finalize(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.index[t.ID.String()]
	if !ok {
		return fmt.Errorf("transaction %s not found", t.ID)
	}
	if r.entries[pos].IsTerminal() {
		return fmt.Errorf("transaction %s already finalized", t.ID)
	}
	r.entries[pos] = *t
	return nil
}

// List filters and pages entries, newest first.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Transaction
	for _, e := range r.entries {
		if e.UserID != params.UserID {
			continue
		}
		if !params.IncludePending && params.Status == nil && e.Status == domain.TransactionStatusPending {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		if params.From != nil && e.InitiatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && e.InitiatedAt.After(*params.To) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].InitiatedAt.After(matched[j].InitiatedAt)
	})

	total := int64(len(matched))
	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = len(matched)
	}
	start := (page - 1) * size
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

var (
	_ ports.WalletRepository      = (*WalletRepo)(nil)
	_ ports.TransactionRepository = (*TransactionRepo)(nil)
)
