package config

import (
	"fmt"
	"time"

	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/mq"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,optional" yaml:"format"`     // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional" yaml:"log_dir"`   // 日志目录，为空时只输出到控制台
	Level    string `json:"level,optional" yaml:"level"`       // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional" yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana RPC 节点
type RpcConfig struct {
	Endpoint  string `json:"endpoint,optional" yaml:"endpoint"`     // 例如 http://localhost:8899
	TimeoutMs int    `json:"timeout_ms,optional" yaml:"timeout_ms"` // 单次请求超时
}

func (c *RpcConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// WatchConfig 托管账户轮询配置
type WatchConfig struct {
	Accounts  []string `json:"accounts,optional" yaml:"accounts"`     // 需要观察的托管账户（base58）
	IntervalS int      `json:"interval_s,optional" yaml:"interval_s"` // 轮询间隔（秒）
}

func (c *WatchConfig) Interval() time.Duration {
	if c.IntervalS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.IntervalS) * time.Second
}

// RentConfig 本地运行时使用的租金参数，未配置时取主网默认值
type RentConfig struct {
	LamportsPerByteYear uint64  `json:"lamports_per_byte_year,optional" yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `json:"exemption_threshold,optional" yaml:"exemption_threshold"`
	BurnPercent         uint8   `json:"burn_percent,optional" yaml:"burn_percent"`
}

func (c *RentConfig) ToRent() sysvar.Rent {
	rent := sysvar.DefaultRent()
	if c.LamportsPerByteYear > 0 {
		rent.LamportsPerByteYear = c.LamportsPerByteYear
	}
	if c.ExemptionThreshold > 0 {
		rent.ExemptionThreshold = c.ExemptionThreshold
	}
	if c.BurnPercent > 0 {
		rent.BurnPercent = c.BurnPercent
	}
	return rent
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，Brokers 为空表示不发送事件
type KafkaProducerConfig struct {
	Brokers   string `json:"brokers,optional" yaml:"brokers"`       // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `json:"batch_size,optional" yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `json:"linger_ms,optional" yaml:"linger_ms"`   // 批处理最大延迟（毫秒）

	Topics struct {
		Escrow string `json:"escrow,optional" yaml:"escrow"` // 托管事件 topic
	} `json:"topics,optional" yaml:"topics"`

	Partitions struct {
		Escrow int `json:"escrow,optional" yaml:"escrow"` // 托管事件 topic 的分区数
	} `json:"partitions,optional" yaml:"partitions"`
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicOption{
			{Topic: c.Topics.Escrow, Partitions: c.Partitions.Escrow},
		},
	}
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	EventSendTimeoutMs int `json:"event_send_timeout_ms,optional" yaml:"event_send_timeout_ms"` // 单条事件发送到 Kafka 并等待 ack 的超时时间
}

func (c *TimeConfig) EventSendTimeout() time.Duration {
	if c.EventSendTimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.EventSendTimeoutMs) * time.Millisecond
}

// EscrowConfig 是主配置结构体，escrowd 与 simulate 共用
type EscrowConfig struct {
	LogConf           LogConfig           `json:"logger,optional" yaml:"logger"`                 // 日志配置
	ProgramID         string              `json:"program_id" yaml:"program_id"`                  // 托管程序地址（base58）
	Rpc               RpcConfig           `json:"rpc,optional" yaml:"rpc"`                       // RPC 节点
	Watch             WatchConfig         `json:"watch,optional" yaml:"watch"`                   // 托管账户轮询
	Rent              RentConfig          `json:"rent,optional" yaml:"rent"`                     // 本地运行时租金参数
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional" yaml:"kafka_producer"` // Kafka 生产者配置
	TimeConf          TimeConfig          `json:"time_conf,optional" yaml:"time_conf"`           // 时间相关配置

	RedisAddr string `json:"redis_addr,optional" yaml:"redis_addr"` // 账户快照存储，为空时使用内存存储
	Scenario  string `json:"scenario,optional" yaml:"scenario"`     // simulate 使用的场景文件
}

func (c *EscrowConfig) ProgramPubkey() (types.Pubkey, error) {
	pk, err := types.TryPubkeyFromBase58(c.ProgramID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return pk, nil
}

// WatchPubkeys 解析轮询账户列表，任何一个地址非法都返回错误
func (c *EscrowConfig) WatchPubkeys() ([]types.Pubkey, error) {
	keys := make([]types.Pubkey, 0, len(c.Watch.Accounts))
	for _, s := range c.Watch.Accounts {
		pk, err := types.TryPubkeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid watch account: %w", err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}
