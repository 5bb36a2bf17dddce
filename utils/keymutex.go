package utils

import (
	"fmt"
	"sync"
)

// KeyMutex serializes mutations per aggregate (one group, one user). Every
// read-check-write sequence on a group or user document runs under the key's
// lock so concurrent requests cannot interleave between the check and the
// write.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: map[string]*keyLock{}}
}

// Lock acquires the lock for key and returns its unlock function.
func (m *KeyMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// LockPair acquires both keys in sorted order so two requests touching the
// same pair of users cannot deadlock.
func (m *KeyMutex) LockPair(a, b string) func() {
	if b < a {
		a, b = b, a
	}
	if a == b {
		return m.Lock(a)
	}
	unlockA := m.Lock(a)
	unlockB := m.Lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

// Locks is the process-wide mutex table used by the route handlers.
var Locks = NewKeyMutex()

func UserKey(id uint) string  { return fmt.Sprintf("user:%d", id) }
func GroupKey(id uint) string { return fmt.Sprintf("group:%d", id) }
func PostKey(id uint) string  { return fmt.Sprintf("post:%d", id) }
