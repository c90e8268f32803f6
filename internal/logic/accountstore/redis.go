package accountstore

import (
	"context"
	"errors"
	"fmt"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"

	"github.com/near/borsh-go"
	"github.com/redis/go-redis/v9"
)

// Redis key 前缀，后接账户地址的 base58
const accountPrefix = "escrow:account"

// accountSnapshot 账户在 Redis 中的 borsh 编码形式
type accountSnapshot struct {
	Lamports   uint64
	Owner      types.Pubkey
	Executable bool
	Data       []byte
}

// RedisStore 以 Redis 持久化账户快照，提交走 MULTI/EXEC 保证原子性，Update 额外用 WATCH 做冲突检测
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func accountKey(key types.Pubkey) string {
	return fmt.Sprintf("%s:%s", accountPrefix, key)
}

func encodeAccount(acc *core.Account) ([]byte, error) {
	return borsh.Serialize(accountSnapshot{
		Lamports:   acc.Lamports,
		Owner:      acc.Owner,
		Executable: acc.Executable,
		Data:       acc.Data,
	})
}

func decodeAccount(raw []byte) (*core.Account, error) {
	var snap accountSnapshot
	if err := borsh.Deserialize(&snap, raw); err != nil {
		return nil, err
	}
	data := snap.Data
	if data == nil {
		data = []byte{}
	}
	return &core.Account{
		Lamports:   snap.Lamports,
		Owner:      snap.Owner,
		Executable: snap.Executable,
		Data:       data,
	}, nil
}

// mgetter *redis.Client 与 *redis.Tx 都满足
type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func redisKeys(keys []types.Pubkey) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = accountKey(key)
	}
	return out
}

// Load 一次 MGET 取回全部账户，不存在的 key 跳过
func (s *RedisStore) Load(ctx context.Context, keys []types.Pubkey) (map[types.Pubkey]*core.Account, error) {
	return load(ctx, s.rdb, keys)
}

func load(ctx context.Context, c mgetter, keys []types.Pubkey) (map[types.Pubkey]*core.Account, error) {
	result := make(map[types.Pubkey]*core.Account, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	vals, err := c.MGet(ctx, redisKeys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	for i, val := range vals {
		if val == nil {
			continue
		}
		raw, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected redis value type %T for %s", val, keys[i])
		}
		acc, err := decodeAccount([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode account %s: %w", keys[i], err)
		}
		result[keys[i]] = acc
	}
	return result, nil
}

func encodeAll(accounts map[types.Pubkey]*core.Account) (map[string][]byte, error) {
	values := make(map[string][]byte, len(accounts))
	for key, acc := range accounts {
		raw, err := encodeAccount(acc)
		if err != nil {
			return nil, fmt.Errorf("encode account %s: %w", key, err)
		}
		values[accountKey(key)] = raw
	}
	return values, nil
}

// Commit 在一个事务管道里写入全部账户
func (s *RedisStore) Commit(ctx context.Context, accounts map[types.Pubkey]*core.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	values, err := encodeAll(accounts)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit error: %w", err)
	}
	return nil
}

// Update WATCH keys 后读取，fn 计算出写入后在 MULTI/EXEC 中提交。
// 期间任一 key 被其他客户端修改时 EXEC 失败，返回 ErrConflict。
func (s *RedisStore) Update(ctx context.Context, keys []types.Pubkey, fn UpdateFunc) error {
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		loaded, err := load(ctx, tx, keys)
		if err != nil {
			return err
		}
		writes, err := fn(loaded)
		if err != nil {
			return err
		}
		if len(writes) == 0 {
			return nil
		}
		values, err := encodeAll(writes)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range values {
				pipe.Set(ctx, k, v, 0)
			}
			return nil
		})
		return err
	}, redisKeys(keys)...)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}
