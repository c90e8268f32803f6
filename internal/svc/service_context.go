package svc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrow-sol/internal/cache"
	"escrow-sol/internal/config"
	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/accountstore"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/dispatcher"
	"escrow-sol/internal/logic/processor"
	"escrow-sol/internal/logic/runtime"
	"escrow-sol/internal/logic/tokenprogram"
	"escrow-sol/internal/mq"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 进程级共享资源
type ServiceContext struct {
	Config      config.EscrowConfig
	ProgramID   types.Pubkey
	Store       accountstore.Store
	Runtime     *runtime.Runtime
	EscrowCache *cache.EscrowCache
	Producer    *kafka.Producer // 未配置 brokers 时为 nil
	rdb         *redis.Client
}

// NewServiceContext 创建服务上下文：初始化日志、账户存储、本地运行时，按需连接 Kafka
func NewServiceContext(c config.EscrowConfig) (*ServiceContext, error) {
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	programID, err := c.ProgramPubkey()
	if err != nil {
		return nil, err
	}

	sc := &ServiceContext{
		Config:      c,
		ProgramID:   programID,
		EscrowCache: cache.NewEscrowCache(),
	}

	// 1. 账户存储：配置了 Redis 就用 Redis，否则用内存
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
		}
		sc.rdb = rdb
		sc.Store = accountstore.NewRedisStore(rdb)
		logger.Infof("[svc] 账户存储: redis %s", c.RedisAddr)
	} else {
		sc.Store = accountstore.NewMemoryStore()
		logger.Infof("[svc] 账户存储: memory")
	}

	// 2. 本地运行时，注册托管程序与 Token Program
	sc.Runtime = NewRuntime(sc.Store, c, programID)

	// 3. Kafka 生产者
	if c.KafkaProducerConf.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			sc.Close()
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		sc.Producer = producer
	}

	logger.Infof("[svc] 服务上下文初始化完成: program=%s", programID)
	return sc, nil
}

// NewRuntime 构造注册好托管程序与 Token Program 的本地运行时
func NewRuntime(store accountstore.Store, c config.EscrowConfig, programID types.Pubkey) *runtime.Runtime {
	rt := runtime.New(store, c.Rent.ToRent())
	rt.Register(programID, processor.New())
	rt.Register(consts.TokenProgram, tokenprogram.New())
	return rt
}

// PublishEscrowEvents 把事件发送到 Kafka，未启用 Kafka 时直接返回
func (sc *ServiceContext) PublishEscrowEvents(ctx context.Context, events []*core.EscrowEvent) error {
	if sc.Producer == nil || len(events) == 0 {
		return nil
	}

	cfg := sc.Config.KafkaProducerConf
	jobs, err := dispatcher.BuildEscrowKafkaJobs(events, cfg.Topics.Escrow, cfg.Partitions.Escrow)
	if err != nil {
		return err
	}

	ok, failed := mq.SendKafkaJobs(ctx, sc.Producer, jobs, sc.Config.TimeConf.EventSendTimeout())
	logger.Infof("[svc] 托管事件发送完成: ok=%d, failed=%d", len(ok), len(failed))
	if len(failed) > 0 {
		errs := make([]error, 0, len(failed))
		for _, f := range failed {
			errs = append(errs, f.Err)
		}
		return fmt.Errorf("send escrow events: %w", errors.Join(errs...))
	}
	return nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Flush(3000)
		sc.Producer.Close()
	}
	if sc.rdb != nil {
		_ = sc.rdb.Close()
	}
	logger.Sync()
}
