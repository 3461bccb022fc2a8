package service

import (
	"context"
	"sync"
)

// userLock serializes guarded mutations for one wallet. Channel-based so a
// caller can abandon the wait when its context is cancelled; once acquired,
// the critical section runs to completion.
type userLock struct {
	ch   chan struct{}
	refs int
}

// lockTable hands out per-user locks lazily and evicts an entry once nobody
// holds or waits for it. Operations on different users never contend.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*userLock)}
}

// acquire blocks until the user's lock is held or ctx is done. The returned
// release function must be called exactly once.
func (t *lockTable) acquire(ctx context.Context, userID string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		t.locks[userID] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			t.unref(userID, l)
		}, nil
	case <-ctx.Done():
		t.unref(userID, l)
		return nil, ctx.Err()
	}
}

func (t *lockTable) unref(userID string, l *userLock) {
	t.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, userID)
	}
	t.mu.Unlock()
}

// size reports how many lock entries are currently live.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
