// Package keylock provides per-key mutexes so read-modify-write sequences on
// the same actor or duel context are serialized without one global lock.
package keylock

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Striped hands out one mutex per int64 key. Entries live for the process
// lifetime; the key space is a bounded community, so there is no eviction.
type Striped struct {
	locks *xsync.MapOf[int64, *sync.Mutex]
}

// New creates an empty lock table.
func New() *Striped {
	return &Striped{locks: xsync.NewMapOf[int64, *sync.Mutex]()}
}

func (s *Striped) mutex(key int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrCompute(key, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}

// Lock acquires the mutex for key and returns its unlock func.
func (s *Striped) Lock(key int64) func() {
	mu := s.mutex(key)
	mu.Lock()
	return mu.Unlock
}

// LockPair acquires both keys' mutexes in ascending key order, which keeps
// two-actor transfers deadlock-free. Equal keys take a single lock.
func (s *Striped) LockPair(a, b int64) func() {
	if a == b {
		return s.Lock(a)
	}
	if a > b {
		a, b = b, a
	}
	first := s.mutex(a)
	second := s.mutex(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

// Size returns the number of keys with an allocated mutex.
func (s *Striped) Size() int {
	return s.locks.Size()
}
