// Package lock provides keyed in-process mutexes.
//
// They only reduce wasted work between goroutines of one process (two sync
// ticks settling the same match, a double-clicked bet). Correctness never
// depends on them: the database transaction is the authority.
package lock

import (
	"context"
	"sync"
)

// keyMutex is a mutex shared by everyone holding or waiting on one key.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyLock hands out one mutex per key and drops it once nobody references it.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

func (l *KeyLock) acquire(key string) *keyMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &keyMutex{}
		l.locks[key] = m
	}
	m.refs++
	return m
}

func (l *KeyLock) release(key string, m *keyMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock blocks until the key is held.
func (l *KeyLock) Lock(key string) {
	l.acquire(key).mu.Lock()
}

// Unlock releases a key held by Lock or a successful TryLock.
func (l *KeyLock) Unlock(key string) {
	l.mu.Lock()
	m, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	l.release(key, m)
}

// TryLock acquires the key without blocking.
func (l *KeyLock) TryLock(key string) bool {
	m := l.acquire(key)
	if m.mu.TryLock() {
		return true
	}
	l.release(key, m)
	return false
}

// LockContext waits for the key until ctx is done.
func (l *KeyLock) LockContext(ctx context.Context, key string) error {
	m := l.acquire(key)

	acquired := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// The waiter still takes the mutex eventually; hand it straight back.
		go func() {
			<-acquired
			m.mu.Unlock()
			l.release(key, m)
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock executes fn while holding key.
func (l *KeyLock) WithLock(key string, fn func() error) error {
	l.Lock(key)
	defer l.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding key, giving up if ctx ends first.
func (l *KeyLock) WithLockContext(ctx context.Context, key string, fn func() error) error {
	if err := l.LockContext(ctx, key); err != nil {
		return err
	}
	defer l.Unlock(key)
	return fn()
}

// IsLocked reports whether key is currently held. The answer may be stale
// as soon as it is returned.
func (l *KeyLock) IsLocked(key string) bool {
	l.mu.Lock()
	m, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return false
	}
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of keys currently tracked.
func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
