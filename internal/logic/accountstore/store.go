package accountstore

import (
	"context"
	"errors"
	"sync"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"
)

// ErrConflict 读取之后、提交之前 keys 中的账户被其他写入方修改，本次写入未生效
var ErrConflict = errors.New("account store: accounts modified concurrently")

// UpdateFunc 根据读到的账户计算需要写回的账户。返回错误时不写入任何内容，错误原样交给 Update 的调用方。
type UpdateFunc func(loaded map[types.Pubkey]*core.Account) (map[types.Pubkey]*core.Account, error)

// Store 账户快照存储。Load 只返回存在的账户；Commit 必须整体生效或整体失败。
// Update 是带冲突检测的读-改-写：keys 在读取后被改动过则放弃写入并返回 ErrConflict。
type Store interface {
	Load(ctx context.Context, keys []types.Pubkey) (map[types.Pubkey]*core.Account, error)
	Commit(ctx context.Context, accounts map[types.Pubkey]*core.Account) error
	Update(ctx context.Context, keys []types.Pubkey, fn UpdateFunc) error
}

// MemoryStore 进程内存储，读写都做深拷贝，调用方拿到的账户与存储互不影响
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[types.Pubkey]*core.Account
	versions map[types.Pubkey]uint64 // 每次写入递增，Update 据此判断冲突
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[types.Pubkey]*core.Account),
		versions: make(map[types.Pubkey]uint64),
	}
}

func (s *MemoryStore) Load(_ context.Context, keys []types.Pubkey) (map[types.Pubkey]*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[types.Pubkey]*core.Account, len(keys))
	for _, key := range keys {
		if acc, ok := s.accounts[key]; ok {
			result[key] = acc.Clone()
		}
	}
	return result, nil
}

func (s *MemoryStore) Commit(_ context.Context, accounts map[types.Pubkey]*core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.write(accounts)
	return nil
}

// Update fn 在不持锁的情况下执行，提交时比较 keys 的版本号
func (s *MemoryStore) Update(_ context.Context, keys []types.Pubkey, fn UpdateFunc) error {
	s.mu.RLock()
	loaded := make(map[types.Pubkey]*core.Account, len(keys))
	seen := make(map[types.Pubkey]uint64, len(keys))
	for _, key := range keys {
		if acc, ok := s.accounts[key]; ok {
			loaded[key] = acc.Clone()
		}
		seen[key] = s.versions[key]
	}
	s.mu.RUnlock()

	writes, err := fn(loaded)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, version := range seen {
		if s.versions[key] != version {
			return ErrConflict
		}
	}
	s.write(writes)
	return nil
}

func (s *MemoryStore) write(accounts map[types.Pubkey]*core.Account) {
	for key, acc := range accounts {
		s.accounts[key] = acc.Clone()
		s.versions[key]++
	}
}

// Get 读取单个账户（拷贝）
func (s *MemoryStore) Get(key types.Pubkey) (*core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[key]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
