package mq

import (
	"context"
	"fmt"
	"time"

	"escrow-sol/internal/utils"
	"escrow-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize = 32 * 1024
	defaultLingerMs  = 5

	adminTimeout = 10 * time.Second
)

// TopicOption 需要确保存在的 topic
type TopicOption struct {
	Topic      string
	Partitions int
}

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    // 批处理大小（字节）
	LingerMs  int    // 批处理最大延迟（毫秒）
	ClientID  string // 为空时使用 escrow-sol-<本机IP>
	Topics    []TopicOption
}

// NewKafkaProducer 创建 Kafka 生产者，缺失的 topic 会先创建
func NewKafkaProducer(opt KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(opt); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(producerConfig(opt))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

func ensureTopics(opt KafkaProducerOption) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": opt.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	meta, err := adminClient.GetMetadata(nil, true, int(adminTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	toCreate := missingTopics(opt.Topics, meta.Topics, replicationFactor)
	if len(toCreate) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	results, err := adminClient.CreateTopics(ctx, toCreate)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
		logger.Infof("[mq] topic 已就绪: %s", result.Topic)
	}
	return nil
}

// missingTopics 过滤出 broker 上还不存在的 topic，分区数至少为 1
func missingTopics(want []TopicOption, existing map[string]kafka.TopicMetadata, replicationFactor int) []kafka.TopicSpecification {
	var specs []kafka.TopicSpecification
	for _, t := range want {
		if t.Topic == "" {
			continue
		}
		if _, ok := existing[t.Topic]; ok {
			continue
		}
		partitions := t.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		specs = append(specs, kafka.TopicSpecification{
			Topic:             t.Topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}
	return specs
}

func producerConfig(opt KafkaProducerOption) *kafka.ConfigMap {
	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := opt.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	clientID := opt.ClientID
	if clientID == "" {
		localIP, _ := utils.GetLocalIP()
		if localIP == "" {
			localIP = "unknown"
		}
		clientID = fmt.Sprintf("escrow-sol-%s", localIP)
	}

	return &kafka.ConfigMap{
		"bootstrap.servers": opt.Brokers,
		"client.id":         clientID,

		// 生产环境按需开启 SASL_SSL
		//"security.protocol": "SASL_SSL",
		//"sasl.mechanisms":   "SCRAM-SHA-256",

		// 可靠性保障
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",

		"message.max.bytes": 1024 * 1024,
	}
}
