package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL  = 24 * time.Hour
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletDefaults seeds newly created wallets: supported currencies and the
// default daily ceilings per limit bucket.
type WalletDefaults struct {
	Currencies       []domain.Currency
	WithdrawalLimits map[domain.Currency]decimal.Decimal
	TransferLimits   map[domain.Currency]decimal.Decimal
}

func (d WalletDefaults) supports(c domain.Currency) bool {
	for _, cur := range d.Currencies {
		if cur == c {
			return true
		}
	}
	return false
}

// LedgerServiceImpl implements ports.LedgerService. For a single user the
// sequence {PIN check, limit check, balance mutation, usage recording,
// persist} runs under that user's lock end-to-end; different users proceed
// fully in parallel.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	idempCache ports.IdempotencyCache
	pins       *PinGuard
	limits     *LimitEnforcer
	clock      ports.Clock
	defaults   WalletDefaults
	locks      *lockTable
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. idempCache may be nil
// when replay protection is not wanted (e.g. unit tests).
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempCache ports.IdempotencyCache,
	hasher ports.HashService,
	clock ports.Clock,
	defaults WalletDefaults,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		idempCache: idempCache,
		pins:       NewPinGuard(hasher, clock),
		limits:     NewLimitEnforcer(clock),
		clock:      clock,
		defaults:   defaults,
		locks:      newLockTable(),
		log:        log,
	}
}

// newWallet is the creation factory handed to the repository.
func (s *LedgerServiceImpl) newWallet(userID string) func() *domain.Wallet {
	return func() *domain.Wallet {
		return domain.NewWallet(userID, s.defaults.Currencies, domain.DailyLimits{
			Withdrawal: cloneLimits(s.defaults.WithdrawalLimits),
			Transfer:   cloneLimits(s.defaults.TransferLimits),
		}, s.clock.Now())
	}
}

// GetOrCreateWallet returns the caller-facing wallet view, creating the
// wallet lazily on first access. Reads do not join the critical section.
func (s *LedgerServiceImpl) GetOrCreateWallet(ctx context.Context, userID string) (*ports.WalletView, error) {
	if userID == "" {
		return nil, apperror.Validation("user id is required")
	}
	w, err := s.walletRepo.GetOrCreate(ctx, userID, s.newWallet(userID))
	if err != nil {
		return nil, err
	}
	return ports.NewWalletView(w), nil
}

// SetTransactionPin hashes and stores a new transaction PIN, resetting any
// lockout state.
func (s *LedgerServiceImpl) SetTransactionPin(ctx context.Context, userID string, plainPin string) error {
	if userID == "" {
		return apperror.Validation("user id is required")
	}

	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	w, err := s.walletRepo.GetOrCreate(ctx, userID, s.newWallet(userID))
	if err != nil {
		return err
	}
	if err := s.pins.SetPin(w, plainPin); err != nil {
		return err
	}
	w.UpdatedAt = s.clock.Now()
	if err := s.walletRepo.Save(ctx, w); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("transaction pin set")
	return nil
}

// VerifyTransactionPin checks the PIN and persists the updated attempt or
// lockout state regardless of outcome. A locked PIN surfaces as PIN_001
// rather than a silent false.
func (s *LedgerServiceImpl) VerifyTransactionPin(ctx context.Context, userID string, plainPin string) (bool, error) {
	if userID == "" {
		return false, apperror.Validation("user id is required")
	}

	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return false, err
	}
	defer release()

	w, err := s.walletRepo.GetOrCreate(ctx, userID, s.newWallet(userID))
	if err != nil {
		return false, err
	}

	ok, verifyErr := s.pins.VerifyPin(w, plainPin)

	// The PIN sub-record is persisted on every call, success or not.
	w.UpdatedAt = s.clock.Now()
	if saveErr := s.walletRepo.Save(ctx, w); saveErr != nil {
		return false, saveErr
	}

	if verifyErr != nil {
		return false, verifyErr
	}
	return ok, nil
}

// ApplyLedgerOperation orchestrates one guarded ledger mutation: PIN check
// (if required), limit check (withdrawal/transfer), balance mutation, usage
// recording, wallet persist and transaction-log append, atomically per
// user. The wallet write is authoritative; the log append is best-effort
// after the commit.
func (s *LedgerServiceImpl) ApplyLedgerOperation(ctx context.Context, req ports.ApplyRequest) (*ports.TransactionResult, error) {
	if err := s.validate(req.UserID, req.Amount, req.Currency, req.Type); err != nil {
		return nil, err
	}

	idempKey := ""
	if req.IdempotencyKey != "" {
		idempKey = req.UserID + ":" + req.IdempotencyKey
		if res := s.replayCached(ctx, idempKey); res != nil {
			return res, nil
		}
	}

	release, err := s.locks.acquire(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-check after acquiring the lock: a racing duplicate may have
	// committed while this request was waiting.
	if idempKey != "" {
		if res := s.replayCached(ctx, idempKey); res != nil {
			return res, nil
		}
	}

	w, err := s.walletRepo.GetOrCreate(ctx, req.UserID, s.newWallet(req.UserID))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	txn := domain.NewTransaction(req.UserID, req.Type, req.Amount, req.Currency, now)
	logged := s.beginLog(ctx, txn)

	if w.Status != domain.WalletStatusActive {
		return nil, s.reject(ctx, txn, logged, apperror.ErrWalletInactive(string(w.Status)))
	}

	// PIN enforcement applies once the user has set a PIN; a wallet
	// without one is not barred from debits.
	pinVerified := false
	if req.RequirePin && w.Pin.IsSet() {
		ok, pinErr := s.pins.VerifyPin(w, req.Pin)
		if pinErr != nil || !ok {
			if pinErr == nil {
				pinErr = apperror.ErrPinMismatch()
			}
			// Attempt/lockout state must land even though the operation failed.
			s.persistPinState(ctx, w)
			return nil, s.reject(ctx, txn, logged, pinErr)
		}
		pinVerified = true
	}

	bucket, limited := req.Type.LimitBucket()
	if limited {
		if err := s.limits.CheckDailyLimit(w, req.Amount, req.Currency, bucket); err != nil {
			if pinVerified {
				s.persistPinState(ctx, w)
			}
			return nil, s.reject(ctx, txn, logged, err)
		}
	}

	if req.Type.IsCredit() {
		w.Credit(req.Type, req.Currency, req.Amount)
	} else {
		if !w.Debit(req.Currency, req.Amount) {
			if pinVerified {
				s.persistPinState(ctx, w)
			}
			return nil, s.reject(ctx, txn, logged, apperror.ErrInsufficientFunds(req.Currency.String()))
		}
	}

	if limited {
		s.limits.RecordUsage(w, req.Amount, req.Currency, bucket)
	}
	w.Touch(now)

	if err := s.walletRepo.Save(ctx, w); err != nil {
		_ = s.reject(ctx, txn, logged, err)
		return nil, err
	}

	txn.Complete(s.clock.Now())
	s.finishLog(ctx, txn, logged)

	result := &ports.TransactionResult{
		Transaction: *txn,
		Balance:     w.Balance(req.Currency),
	}

	if idempKey != "" {
		s.cacheResult(ctx, idempKey, result)
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID).
		Str("type", string(req.Type)).
		Str("currency", req.Currency.String()).
		Str("amount", req.Amount.String()).
		Msg("ledger operation committed")

	return result, nil
}

// Transfer debits the sender (transfer bucket, optionally PIN-guarded) and
// credits the recipient as a deposit. Both wallets are locked in
// deterministic user-id order so concurrent opposite transfers cannot
// deadlock.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := s.validate(req.FromUserID, req.Amount, req.Currency, domain.OperationTransfer); err != nil {
		return nil, err
	}
	if req.ToUserID == "" {
		return nil, apperror.Validation("recipient user id is required")
	}
	if req.ToUserID == req.FromUserID {
		return nil, apperror.Validation("cannot transfer to the same wallet")
	}

	first, second := req.FromUserID, req.ToUserID
	if second < first {
		first, second = second, first
	}
	releaseFirst, err := s.locks.acquire(ctx, first)
	if err != nil {
		return nil, err
	}
	defer releaseFirst()
	releaseSecond, err := s.locks.acquire(ctx, second)
	if err != nil {
		return nil, err
	}
	defer releaseSecond()

	sender, err := s.walletRepo.GetOrCreate(ctx, req.FromUserID, s.newWallet(req.FromUserID))
	if err != nil {
		return nil, err
	}
	recipient, err := s.walletRepo.GetOrCreate(ctx, req.ToUserID, s.newWallet(req.ToUserID))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	debitTxn := domain.NewTransaction(req.FromUserID, domain.OperationTransfer, req.Amount, req.Currency, now)
	debitLogged := s.beginLog(ctx, debitTxn)

	if sender.Status != domain.WalletStatusActive {
		return nil, s.reject(ctx, debitTxn, debitLogged, apperror.ErrWalletInactive(string(sender.Status)))
	}
	if recipient.Status != domain.WalletStatusActive {
		return nil, s.reject(ctx, debitTxn, debitLogged, apperror.ErrWalletInactive(string(recipient.Status)))
	}

	pinVerified := false
	if req.RequirePin && sender.Pin.IsSet() {
		ok, pinErr := s.pins.VerifyPin(sender, req.Pin)
		if pinErr != nil || !ok {
			if pinErr == nil {
				pinErr = apperror.ErrPinMismatch()
			}
			s.persistPinState(ctx, sender)
			return nil, s.reject(ctx, debitTxn, debitLogged, pinErr)
		}
		pinVerified = true
	}

	if err := s.limits.CheckDailyLimit(sender, req.Amount, req.Currency, domain.LimitBucketTransfer); err != nil {
		if pinVerified {
			s.persistPinState(ctx, sender)
		}
		return nil, s.reject(ctx, debitTxn, debitLogged, err)
	}

	if !sender.Debit(req.Currency, req.Amount) {
		if pinVerified {
			s.persistPinState(ctx, sender)
		}
		return nil, s.reject(ctx, debitTxn, debitLogged, apperror.ErrInsufficientFunds(req.Currency.String()))
	}
	s.limits.RecordUsage(sender, req.Amount, req.Currency, domain.LimitBucketTransfer)
	sender.Touch(now)

	if err := s.walletRepo.Save(ctx, sender); err != nil {
		_ = s.reject(ctx, debitTxn, debitLogged, err)
		return nil, err
	}

	creditTxn := domain.NewTransaction(req.ToUserID, domain.OperationDeposit, req.Amount, req.Currency, now)
	creditLogged := s.beginLog(ctx, creditTxn)

	recipient.Credit(domain.OperationDeposit, req.Currency, req.Amount)
	recipient.Touch(now)

	if err := s.walletRepo.Save(ctx, recipient); err != nil {
		// The sender debit already committed: compensate under the same
		// locks so money is never lost.
		s.compensateDebit(ctx, req)
		_ = s.reject(ctx, debitTxn, debitLogged, err)
		_ = s.reject(ctx, creditTxn, creditLogged, err)
		return nil, err
	}

	done := s.clock.Now()
	debitTxn.Complete(done)
	creditTxn.Complete(done)
	s.finishLog(ctx, debitTxn, debitLogged)
	s.finishLog(ctx, creditTxn, creditLogged)

	s.log.Info().
		Str("from", req.FromUserID).
		Str("to", req.ToUserID).
		Str("currency", req.Currency.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer committed")

	return &ports.TransferResult{
		Debit:         *debitTxn,
		Credit:        *creditTxn,
		SenderBalance: sender.Balance(req.Currency),
	}, nil
}

// ListTransactions returns log entries newest first. Pending entries are
// hidden from downstream consumers unless explicitly requested.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.UserID == "" {
		return nil, 0, apperror.Validation("user id is required")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	return s.txRepo.List(ctx, params)
}

// validate checks the preconditions shared by every mutation before any
// state is touched.
func (s *LedgerServiceImpl) validate(userID string, amount decimal.Decimal, c domain.Currency, op domain.OperationType) error {
	if userID == "" {
		return apperror.Validation("user id is required")
	}
	if !amount.IsPositive() {
		return apperror.Validation("amount must be greater than zero")
	}
	if !op.Valid() {
		return apperror.Validation(fmt.Sprintf("unsupported operation type %q", op))
	}
	if !s.defaults.supports(c) {
		return apperror.Validation(fmt.Sprintf("unsupported currency %q", c))
	}
	return nil
}

// persistPinState writes the wallet after a PIN verification so attempt,
// lockout and last-used bookkeeping lands whatever the operation itself
// does next. An attempt-counter reset must survive a failed withdrawal.
func (s *LedgerServiceImpl) persistPinState(ctx context.Context, w *domain.Wallet) {
	w.UpdatedAt = s.clock.Now()
	if err := s.walletRepo.Save(ctx, w); err != nil {
		s.log.Error().Err(err).Str("user_id", w.UserID).Msg("failed to persist pin state")
	}
}

// beginLog appends the pending log entry. The log is best-effort relative
// to the wallet write: a failed append downgrades to a warning.
func (s *LedgerServiceImpl) beginLog(ctx context.Context, txn *domain.Transaction) bool {
	if err := s.txRepo.Create(ctx, txn); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to append pending transaction")
		return false
	}
	return true
}

// reject finalizes the log entry as failed and returns err unchanged.
func (s *LedgerServiceImpl) reject(ctx context.Context, txn *domain.Transaction, logged bool, err error) error {
	reason := apperror.Code(err)
	if reason == "" {
		reason = err.Error()
	}
	txn.Fail(s.clock.Now(), reason)
	s.finishLog(ctx, txn, logged)
	return err
}

func (s *LedgerServiceImpl) finishLog(ctx context.Context, txn *domain.Transaction, logged bool) {
	if !logged {
		return
	}
	if err := s.txRepo.Finalize(ctx, txn); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to finalize transaction")
	}
}

// compensateDebit re-credits the sender after a failed recipient write.
// Runs under the transfer's locks, so no other writer can interleave.
func (s *LedgerServiceImpl) compensateDebit(ctx context.Context, req ports.TransferRequest) {
	sender, err := s.walletRepo.Get(ctx, req.FromUserID)
	if err != nil || sender == nil {
		s.log.Error().Err(err).Str("user_id", req.FromUserID).Msg("transfer compensation failed to load sender")
		return
	}
	// Undo the balance, statistics and usage consumed by the reversed debit.
	sender.Balances[req.Currency] = sender.Balances[req.Currency].Add(req.Amount)
	sender.Statistics.TotalWithdrawals[req.Currency] = sender.Statistics.TotalWithdrawals[req.Currency].Sub(req.Amount)
	sender.DailyUsage.Add(domain.LimitBucketTransfer, req.Currency, req.Amount.Neg())
	if err := s.walletRepo.Save(ctx, sender); err != nil {
		s.log.Error().Err(err).Str("user_id", req.FromUserID).Msg("transfer compensation failed to save sender")
	}
}

func (s *LedgerServiceImpl) replayCached(ctx context.Context, key string) *ports.TransactionResult {
	if s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, proceeding without replay")
		return nil
	}
	if cached == nil {
		return nil
	}
	res := &ports.TransactionResult{}
	if err := json.Unmarshal(cached, res); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding malformed idempotency entry")
		return nil
	}
	return res
}

func (s *LedgerServiceImpl) cacheResult(ctx context.Context, key string, res *ports.TransactionResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal idempotency entry")
		return
	}
	if err := s.idempCache.Set(ctx, key, payload, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency entry")
	}
}

func cloneLimits(m map[domain.Currency]decimal.Decimal) map[domain.Currency]decimal.Decimal {
	cp := make(map[domain.Currency]decimal.Decimal, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

var _ ports.LedgerService = (*LedgerServiceImpl)(nil)
