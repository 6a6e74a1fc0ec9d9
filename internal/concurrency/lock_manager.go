// Package concurrency provides the per-key serialization behind the
// engine's single-writer-per-run guarantee.
package concurrency

import (
	"sync"
)

// LockManager hands out one mutex per key, created on first use and kept
// for the life of the process. The engine keys them by run ID: holding a
// run's mutex makes that run's evaluate-append-project sequence the only
// writer in flight, which is what keeps its sequence numbers gapless.
type LockManager struct {
	locks sync.Map // key -> *sync.Mutex
}

// NewLockManager creates an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns the mutex for key, creating it on first use. Repeated
// calls with the same key always return the same mutex.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
