package sync

import (
	"sync"
)

const defaultShardCount = 64

// ShardedMutex serialises work per key without a global lock. Keys are
// hashed onto a fixed set of mutexes, so two keys may share a shard but a
// single key always maps to the same one.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with n shards. Non-positive n falls
// back to 64.
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShardCount
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard owning key. Empty keys use shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the shard owning key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// Do runs fn while holding the shard for key.
func (m *ShardedMutex) Do(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
