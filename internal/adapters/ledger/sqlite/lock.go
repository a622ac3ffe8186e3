package sqlite

import (
	"sync"

	"github.com/bnema/pairchat/internal/domain"
)

type accountLock struct {
	mu   sync.Mutex
	refs int
}

// accountLocks serializes ledger mutation per account inside the process.
// Entries live only while a caller holds or waits for them.
// Cross-process writers are serialized by sqlite's immediate transactions.
type accountLocks struct {
	mu    sync.Mutex
	locks map[domain.AccountID]*accountLock
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: map[domain.AccountID]*accountLock{}}
}

func (l *accountLocks) lock(id domain.AccountID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &accountLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
