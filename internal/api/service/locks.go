package service

import "sync"

// keyedMutex serializes mutations per step identity. Status changes,
// assignments and repairs for one step are mutually exclusive with each
// other, while different steps (even of the same job) proceed concurrently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*stepLock
}

type stepLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*stepLock)}
}

// Lock acquires the mutex for stepID and returns its release function.
func (k *keyedMutex) Lock(stepID uint) func() {
	k.mu.Lock()
	l, ok := k.locks[stepID]
	if !ok {
		l = &stepLock{}
		k.locks[stepID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, stepID)
		}
		k.mu.Unlock()
	}
}

// stepLocks is shared by every service that mutates step state, so the
// per-step critical section holds across service boundaries.
var stepLocks = newKeyedMutex()
