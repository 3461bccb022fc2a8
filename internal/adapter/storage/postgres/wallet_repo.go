package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// Load retry policy. Loads are idempotent, so transient failures below the
// store boundary retry with backoff; saves never do.
const (
	loadAttempts  = 3
	retryBaseWait = 50 * time.Millisecond
)

// WalletRepo implements ports.WalletRepository on a single-row JSONB
// document per user. The version column makes the whole-document upsert
// conditional: either the full updated document lands or none of it does.
type WalletRepo struct {
	pool    Pool
	timeout time.Duration
}

// NewWalletRepo creates a new WalletRepo. timeout bounds every storage
// round trip.
func NewWalletRepo(pool Pool, timeout time.Duration) *WalletRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WalletRepo{pool: pool, timeout: timeout}
}

// GetOrCreate loads the wallet document, inserting a default one when
// absent. ON CONFLICT DO NOTHING makes concurrent creators converge on a
// single row.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID string, create func() *domain.Wallet) (*domain.Wallet, error) {
	w, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	fresh := create()
	doc, err := json.Marshal(fresh)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal wallet: %w", err))
	}

	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `INSERT INTO wallets (user_id, doc, version, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3) ON CONFLICT (user_id) DO NOTHING`
	tag, err := r.pool.Exec(opCtx, query, userID, doc, fresh.CreatedAt)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("insert wallet: %w", err))
	}
	if tag.RowsAffected() == 1 {
		fresh.Version = 1
		return fresh, nil
	}

	// Lost the creation race: another writer inserted first.
	w, err = r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound(userID)
	}
	return w, nil
}

// Get loads the latest persisted snapshot, or nil when no wallet exists.
// Transient failures are retried with backoff below this boundary.
func (r *WalletRepo) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		w, err := r.load(ctx, userID)
		if err == nil {
			return w, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < loadAttempts {
			select {
			case <-time.After(time.Duration(attempt) * retryBaseWait):
			case <-ctx.Done():
				return nil, apperror.ErrStorageUnavailable(ctx.Err())
			}
		}
	}
	return nil, apperror.ErrStorageUnavailable(lastErr)
}

func (r *WalletRepo) load(ctx context.Context, userID string) (*domain.Wallet, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT doc, version FROM wallets WHERE user_id = $1`

	var doc []byte
	var version int64
	err := r.pool.QueryRow(opCtx, query, userID).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	w := &domain.Wallet{}
	if err := json.Unmarshal(doc, w); err != nil {
		return nil, fmt.Errorf("unmarshal wallet %s: %w", userID, err)
	}
	w.Version = version
	return w, nil
}

// Save upserts the whole document conditionally on the version token and
// bumps it on success. A lost race surfaces as SYS_002; an expired timeout
// after the statement was sent is indeterminate and surfaces the same way
// so callers never auto-retry it.
func (r *WalletRepo) Save(ctx context.Context, w *domain.Wallet) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal wallet: %w", err))
	}

	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE wallets SET doc = $1, version = version + 1, updated_at = NOW()
		WHERE user_id = $2 AND version = $3`
	tag, err := r.pool.Exec(opCtx, query, doc, w.UserID, w.Version)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperror.ErrConcurrencyConflict(fmt.Errorf("save wallet %s: outcome unknown: %w", w.UserID, err))
		}
		return apperror.ErrStorageUnavailable(fmt.Errorf("save wallet: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrConcurrencyConflict(
			fmt.Errorf("wallet %s: version %d no longer current", w.UserID, w.Version))
	}
	w.Version++
	return nil
}
