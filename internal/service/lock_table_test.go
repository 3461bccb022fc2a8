package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_MutualExclusionPerUser(t *testing.T) {
	table := newLockTable()
	var inSection, maxInSection int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := table.acquire(context.Background(), "user-1")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Microsecond)

			mu.Lock()
			inSection--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSection)
}

func TestLockTable_DifferentUsersDoNotContend(t *testing.T) {
	table := newLockTable()

	releaseA, err := table.acquire(context.Background(), "user-a")
	require.NoError(t, err)
	defer releaseA()

	// user-b acquires immediately even while user-a's lock is held.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := table.acquire(ctx, "user-b")
	require.NoError(t, err)
	releaseB()
}

func TestLockTable_AcquireHonoursContextCancel(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = table.acquire(ctx, "user-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
}

func TestLockTable_EvictsIdleEntries(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, table.size())

	release()
	assert.Zero(t, table.size())

	// An abandoned waiter also drops its reference.
	release, err = table.acquire(context.Background(), "user-2")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	_, waitErr := table.acquire(ctx, "user-2")
	cancel()
	require.Error(t, waitErr)
	assert.Equal(t, 1, table.size())

	release()
	assert.Zero(t, table.size())
}
