package application

import (
	"context"
	"sync"
	"time"
)

// roomLocks hands out one exclusive lock per room, created lazily on first
// use and reused for the room's lifetime. Locks for distinct rooms are
// independent; waiters on the same room are served in channel order, which
// linearizes validate-then-commit per room.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]chan struct{})}
}

func (r *roomLocks) lockFor(roomID string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[roomID]
	if !ok {
		lock = make(chan struct{}, 1)
		r.locks[roomID] = lock
	}
	return lock
}

// Acquire blocks until the room's lock is held, the timeout elapses, or ctx
// is done. The returned release function is nil exactly when an error is
// returned; callers must invoke it on every path once acquired.
func (r *roomLocks) Acquire(ctx context.Context, roomID string, timeout time.Duration) (func(), error) {
	lock := r.lockFor(roomID)

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
