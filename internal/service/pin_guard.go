package service

import (
	"fmt"
	"regexp"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
)

// PIN lockout policy: three consecutive misses lock verification for a
// fixed window. The lock auto-expires by timestamp comparison on the next
// access; no background timer is involved.
const (
	maxPinAttempts = 3
	pinLockout     = 15 * time.Minute
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// PinGuard owns the transaction-PIN lifecycle on a wallet: set, verify,
// lockout. It mutates the in-memory wallet only; callers persist the
// wallet after every call, whatever the outcome.
type PinGuard struct {
	hasher ports.HashService
	clock  ports.Clock
}

// NewPinGuard creates a PinGuard.
func NewPinGuard(hasher ports.HashService, clock ports.Clock) *PinGuard {
	return &PinGuard{hasher: hasher, clock: clock}
}

// SetPin validates the PIN format, hashes it and resets the lockout state.
// Always hashes: loading a persisted wallet never passes through here.
func (g *PinGuard) SetPin(w *domain.Wallet, plainPin string) error {
	if !pinPattern.MatchString(plainPin) {
		return apperror.Validation("transaction PIN must be 4 to 6 digits")
	}
	hash, err := g.hasher.Hash(plainPin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hashing pin: %w", err))
	}
	w.Pin.Hash = &hash
	w.Pin.Attempts = 0
	w.Pin.LockedUntil = nil
	return nil
}

// VerifyPin checks plainPin against the stored hash.
//
// While the lock window is open it returns PIN_001 without consuming an
// attempt. An expired lock is lifted here, on access, and the strike count
// starts over. A mismatch increments attempts; the third consecutive miss
// opens a fresh lock window. A match resets the state machine to Unlocked.
func (g *PinGuard) VerifyPin(w *domain.Wallet, plainPin string) (bool, error) {
	if !w.Pin.IsSet() {
		return false, apperror.Validation("transaction PIN is not set")
	}

	now := g.clock.Now()
	if w.Pin.LockedUntil != nil {
		if now.Before(*w.Pin.LockedUntil) {
			return false, apperror.ErrPinLocked(*w.Pin.LockedUntil)
		}
		// Lock expired: lifted implicitly on this access.
		w.Pin.LockedUntil = nil
		w.Pin.Attempts = 0
	}

	match, err := g.hasher.Verify(plainPin, *w.Pin.Hash)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("verifying pin: %w", err))
	}

	if !match {
		w.Pin.Attempts++
		if w.Pin.Attempts >= maxPinAttempts {
			until := now.Add(pinLockout)
			w.Pin.LockedUntil = &until
		}
		return false, nil
	}

	w.Pin.Attempts = 0
	w.Pin.LockedUntil = nil
	ts := now
	w.Pin.LastUsedAt = &ts
	return true, nil
}
