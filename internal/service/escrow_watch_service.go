package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"escrow-sol/internal/cache"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
)

// AccountFetcher RPC 批量读取账户，*client.Client 即满足
type AccountFetcher interface {
	GetMultipleAccounts(ctx context.Context, bases []string) ([]client.AccountInfo, error)
}

// EscrowWatchService 周期性拉取托管账户，解码后写入 EscrowCache。
// 实现 go-zero service.Service，可直接加入 ServiceGroup。
type EscrowWatchService struct {
	cache     *cache.EscrowCache
	fetcher   AccountFetcher
	programID types.Pubkey
	keys      []types.Pubkey
	accounts  []string
	interval  time.Duration
	timeout   time.Duration
	stopChan  chan struct{}
	ctx       context.Context
	cancel    func(err error)
}

func NewEscrowWatchService(
	fetcher AccountFetcher,
	programID types.Pubkey,
	keys []types.Pubkey,
	interval, timeout time.Duration,
	escrowCache *cache.EscrowCache,
) (*EscrowWatchService, error) {
	if fetcher == nil {
		return nil, errors.New("rpc client is nil")
	}
	if len(keys) == 0 {
		return nil, errors.New("no escrow accounts to watch")
	}

	accounts := make([]string, len(keys))
	for i, key := range keys {
		accounts[i] = key.String()
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &EscrowWatchService{
		cache:     escrowCache,
		fetcher:   fetcher,
		programID: programID,
		keys:      keys,
		accounts:  accounts,
		interval:  interval,
		timeout:   timeout,
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *EscrowWatchService) Start() {
	if err := s.update(); err != nil {
		logger.Warnf("[EscrowWatchService] 首次同步失败: %v", err)
	}
	s.scheduleNext()
	<-s.stopChan
}

func (s *EscrowWatchService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		if err := s.update(); err != nil {
			logger.Warnf("[EscrowWatchService] 周期性更新失败: %v", err)
		}
		s.scheduleNext()
	})
}

func (s *EscrowWatchService) Stop() {
	s.cancel(errors.New("EscrowWatchService stop"))
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

func (s *EscrowWatchService) update() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[EscrowWatchService] update panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("update panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	infos, err := s.fetcher.GetMultipleAccounts(ctx, s.accounts)
	if err != nil {
		return fmt.Errorf("GetMultipleAccounts failed: %w", err)
	}
	if len(infos) != len(s.accounts) {
		return fmt.Errorf("返回账户数与请求不一致: got=%d want=%d", len(infos), len(s.accounts))
	}
	logger.Debugf("[EscrowWatchService] GetMultipleAccounts 成功, 账户数: %d, 耗时: %v", len(infos), time.Since(start))

	now := time.Now()
	for i, info := range infos {
		s.observe(s.keys[i], info, now)
	}
	return nil
}

// observe 处理单个账户：不存在、owner 不对、未初始化的账户都会从缓存中移除
func (s *EscrowWatchService) observe(key types.Pubkey, info client.AccountInfo, now time.Time) {
	if len(info.Data) == 0 {
		if s.cache.Remove(key) {
			logger.Warnf("[EscrowWatchService] 托管账户已关闭: escrow=%s", key)
		}
		return
	}
	if owner := types.PubkeyFromCommon(info.Owner); owner != s.programID {
		s.cache.Remove(key)
		logger.Warnf("[EscrowWatchService] 账户不属于托管程序: escrow=%s, owner=%s", key, owner)
		return
	}

	record, err := state.Unpack(info.Data)
	if err != nil {
		s.cache.Remove(key)
		if errors.Is(err, core.ErrUninitializedAccount) {
			logger.Debugf("[EscrowWatchService] 托管账户尚未初始化: escrow=%s", key)
		} else {
			logger.Warnf("[EscrowWatchService] 解码失败: escrow=%s, err=%v", key, err)
		}
		return
	}

	changed := s.cache.Update(key, cache.Observation{
		Record:   *record,
		Lamports: info.Lamports,
		SeenAt:   now,
	})
	if changed {
		logger.Infof("[EscrowWatchService] 托管状态更新: escrow=%s, initializer=%s, temp=%s, receiving=%s, expected_amount=%d",
			key, record.Initializer, record.TempTokenAccount, record.ReceivingAccount, record.ExpectedAmount)
	}
}
