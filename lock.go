package ralphflow

import (
	"sync"
	"time"
)

// LockKey identifies the admission lock scope. One assistant invocation may
// run per (project, feature) at a time.
type LockKey struct {
	ProjectID string
	FeatureID string
}

// LockInfo describes a held lock.
type LockInfo struct {
	Stage      Stage
	AcquiredAt time.Time
}

// LockRegistry is an in-memory admission lock table. Acquisition fails fast
// with ErrLockHeld rather than queueing.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[LockKey]LockInfo
}

// NewLockRegistry returns an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[LockKey]LockInfo)}
}

// TryAcquire attempts to take the lock for key. It returns ErrLockHeld if an
// invocation is already in flight.
func (r *LockRegistry) TryAcquire(key LockKey, stage Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.locks[key]; held {
		return ErrLockHeld
	}
	r.locks[key] = LockInfo{Stage: stage, AcquiredAt: time.Now()}
	return nil
}

// Release drops the lock for key. Releasing an unheld lock is a no-op.
func (r *LockRegistry) Release(key LockKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, key)
}

// Holder returns the current lock info for key, if held.
func (r *LockRegistry) Holder(key LockKey) (LockInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, held := r.locks[key]
	return info, held
}

// WithLock runs fn while holding the lock for key. The lock is released even
// if fn panics.
func (r *LockRegistry) WithLock(key LockKey, stage Stage, fn func() error) error {
	if err := r.TryAcquire(key, stage); err != nil {
		return err
	}
	defer r.Release(key)
	return fn()
}
