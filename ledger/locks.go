package ledger

import "sync"

// UserLocks serializes balance-affecting operations per user. Lock
// acquisition is fail-fast: a second concurrent operation on the same
// user gets ErrConcurrentModification from its caller and may retry.
type UserLocks struct {
	m sync.Map // userID -> *sync.Mutex
}

// NewUserLocks creates an empty lock table. One table must be shared by
// every component that mutates balances (Coordinator, EntryService).
func NewUserLocks() *UserLocks {
	return &UserLocks{}
}

// Acquire tries to take the user's lock without blocking. On success it
// returns the release func and true.
func (l *UserLocks) Acquire(userID string) (func(), bool) {
	mu, _ := l.m.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
