package cache

import (
	"sync"
	"time"

	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/types"
)

// Observation 一次观察到的托管账户状态
type Observation struct {
	Record   state.Escrow
	Lamports uint64
	SeenAt   time.Time
}

type EscrowCache struct {
	mu    sync.RWMutex
	items map[types.Pubkey]Observation
}

func NewEscrowCache() *EscrowCache {
	return &EscrowCache{
		items: make(map[types.Pubkey]Observation),
	}
}

// Update 写入最新观察，返回记录是否与上次不同（首次出现也算变化）。
// 只有 lamports 或观察时间变化不算。
func (c *EscrowCache) Update(key types.Pubkey, obs Observation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.items[key]
	c.items[key] = obs
	return !ok || prev.Record != obs.Record
}

func (c *EscrowCache) Get(key types.Pubkey) (Observation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	obs, ok := c.items[key]
	return obs, ok
}

// Remove 删除记录（账户被关闭或不再属于托管程序时）
func (c *EscrowCache) Remove(key types.Pubkey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	return true
}

func (c *EscrowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot 返回当前全部记录的拷贝
func (c *EscrowCache) Snapshot() map[types.Pubkey]Observation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[types.Pubkey]Observation, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}
