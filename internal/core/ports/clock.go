package ports

import "time"

// Clock is the single time source for the ledger core. PIN lockout windows
// and daily-usage rollover both derive from it, so tests can drive day
// transitions deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall-clock time source.
func SystemClock() Clock { return systemClock{} }
