package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// itemLocker hands out one exclusive lock per item id. Entries are reference counted
// and dropped once nobody holds or waits for them, so the map only grows with the
// number of items being sold concurrently.
type itemLocker struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newItemLocker() *itemLocker {
	return &itemLocker{locks: make(map[string]*itemLock)}
}

// acquire waits at most timeout for the item's lock. The returned release func must
// be called exactly once.
func (l *itemLocker) acquire(ctx context.Context, itemID string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[itemID]
	if !ok {
		lk = &itemLock{sem: semaphore.NewWeighted(1)}
		l.locks[itemID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := lk.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(itemID, lk)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lk.sem.Release(1)
			l.unref(itemID, lk)
		})
	}, nil
}

func (l *itemLocker) unref(itemID string, lk *itemLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, itemID)
	}
}

func (l *itemLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
