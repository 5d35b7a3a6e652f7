package usecase

import (
	"context"
	"sync"
)

// UserLocks is a keyed mutex. Waiters for the same key are granted the lock in arrival
// order; different keys never contend.
type UserLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	waiters []chan struct{}
}

func NewUserLocks() *UserLocks {
	return &UserLocks{slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is held or ctx is done. The returned func releases the lock and
// must be called exactly once.
func (l *UserLocks) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, held := l.slots[key]
	if !held {
		l.slots[key] = &lockSlot{}
		l.mu.Unlock()
		return l.releaser(key), nil
	}
	ch := make(chan struct{})
	slot.waiters = append(slot.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return l.releaser(key), nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range slot.waiters {
			if w == ch {
				slot.waiters = append(slot.waiters[:i], slot.waiters[i+1:]...)
				l.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		l.mu.Unlock()
		// Granted while cancelling: pass the lock on.
		l.unlock(key)
		return nil, ctx.Err()
	}
}

// Held reports whether key is currently locked.
func (l *UserLocks) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.slots[key]
	return ok
}

func (l *UserLocks) releaser(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(key) })
	}
}

func (l *UserLocks) unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		return
	}
	if len(slot.waiters) == 0 {
		delete(l.slots, key)
		return
	}
	next := slot.waiters[0]
	slot.waiters = slot.waiters[1:]
	close(next)
}
