package postgres

import (
	"context"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository. Entries are
// append-only rows: inserted pending, finalized exactly once, never touched
// again.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a pending log entry.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, user_id, type, amount, currency, status, error, initiated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.UserID, t.Type, t.Amount.String(), t.Currency,
		t.Status, t.Error, t.InitiatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Finalize sets the terminal status. The status guard makes the write
// idempotent against double finalization.
func (r *TransactionRepo) Finalize(ctx context.Context, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1, error = $2, completed_at = $3
		WHERE id = $4 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, t.Status, t.Error, t.CompletedAt, t.ID)
	if err != nil {
		return fmt.Errorf("finalize transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not pending", t.ID)
	}
	return nil
}

// List fetches log entries with filtering and pagination, newest first.
// Pending entries are hidden unless explicitly requested, so analytics
// consumers only ever observe terminal outcomes.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, params.UserID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	} else if !params.IncludePending {
		conditions = append(conditions, "status != 'pending'")
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("initiated_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("initiated_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	offset := (page - 1) * size
	dataQuery := fmt.Sprintf(`SELECT id, user_id, type, amount, currency, status, error, initiated_at, completed_at
		FROM transactions %s ORDER BY initiated_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		var amount string
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Type, &amount, &t.Currency,
			&t.Status, &t.Error, &t.InitiatedAt, &t.CompletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, 0, fmt.Errorf("parse transaction amount %q: %w", amount, err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}
