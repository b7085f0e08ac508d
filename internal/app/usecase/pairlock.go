package usecase

import "sync"

type pairKey struct {
	chatID int64
	userID int64
}

type pairEntry struct {
	mu   sync.Mutex
	refs int
}

// PairLocks serializes state transitions per (chat, user) pair. The message
// path and the boundary sweep mutate the same streak row from different
// goroutines; both must go through the same PairLocks instance. Entries are
// dropped once the last holder releases, so the map stays bounded by the
// number of in-flight operations.
type PairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairEntry
}

func NewPairLocks() *PairLocks {
	return &PairLocks{locks: make(map[pairKey]*pairEntry)}
}

// Lock blocks until the pair's lock is held and returns the release func.
func (l *PairLocks) Lock(chatID, userID int64) func() {
	key := pairKey{chatID: chatID, userID: userID}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &pairEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
