package service

import "sync"

// KeyedLocks serialises operations per key (artist ID or commission ID) so
// admission counting, release renumbering, milestone settlement and
// cancellation never interleave for the same entity. MilestoneService and
// CancellationService must share one instance so a cancel cannot slip
// between a final approval's capture and its queue release. Locks are
// created lazily and kept for the process lifetime; cardinality is bounded
// by the active entity population.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
