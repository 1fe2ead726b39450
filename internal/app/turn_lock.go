package app

import (
	"context"
	"sync"
)

// turnLocks serializes turns per user. Entries are dropped once no turn holds
// or waits for them.
type turnLocks struct {
	mu    sync.Mutex
	locks map[uint]*turnLock
}

type turnLock struct {
	slot chan struct{}
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[uint]*turnLock)}
}

func (l *turnLocks) acquire(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &turnLock{slot: make(chan struct{}, 1)}
		l.locks[userID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.slot <- struct{}{}:
		return func() {
			<-lk.slot
			l.release(userID, lk)
		}, nil
	case <-ctx.Done():
		l.release(userID, lk)
		return nil, ctx.Err()
	}
}

func (l *turnLocks) release(userID uint, lk *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, userID)
	}
}

func (l *turnLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
