package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"escrow-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ErrSkipped 同分区内前一条消息失败，后续消息不再发送，保证消费端看到的顺序没有空洞
var ErrSkipped = errors.New("skipped after earlier failure in partition")

// KafkaJob 一条待发送的 Kafka 消息，Partition 由调用方按 key 预先算好
type KafkaJob struct {
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
}

// KafkaSendResult 单条消息的发送结果
type KafkaSendResult struct {
	Job *KafkaJob
	Err error
}

type partitionKey struct {
	topic     string
	partition int32
}

// groupByPartition 按 (topic, partition) 分组，组内保持输入顺序
func groupByPartition(jobs []*KafkaJob) [][]*KafkaJob {
	index := make(map[partitionKey]int)
	var groups [][]*KafkaJob
	for _, job := range jobs {
		if job == nil {
			continue
		}
		pk := partitionKey{topic: job.Topic, partition: job.Partition}
		i, ok := index[pk]
		if !ok {
			i = len(groups)
			index[pk] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], job)
	}
	return groups
}

// SendKafkaJobs 发送消息并等待投递回执。
// 不同分区并发发送；同一分区内逐条发送，上一条确认后才发下一条，失败后该分区剩余消息记为 ErrSkipped。
func SendKafkaJobs(
	ctx context.Context,
	producer *kafka.Producer,
	jobs []*KafkaJob,
	perMessageTimeout time.Duration,
) (ok []*KafkaJob, failed []KafkaSendResult) {
	groups := groupByPartition(jobs)
	if len(groups) == 0 {
		return nil, nil
	}

	var wg sync.WaitGroup
	resultCh := make(chan KafkaSendResult, len(jobs))
	for _, group := range groups {
		wg.Add(1)
		go func(group []*KafkaJob) {
			defer wg.Done()
			var sendErr error
			for _, job := range group {
				if sendErr != nil {
					resultCh <- KafkaSendResult{Job: job, Err: ErrSkipped}
					continue
				}
				sendErr = sendOne(ctx, producer, job, perMessageTimeout)
				resultCh <- KafkaSendResult{Job: job, Err: sendErr}
			}
		}(group)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.Err != nil {
			logger.Warnf("[mq] 消息发送失败: topic=%s, partition=%d, err=%v", res.Job.Topic, res.Job.Partition, res.Err)
			failed = append(failed, res)
		} else {
			ok = append(ok, res.Job)
		}
	}
	return ok, failed
}

func sendOne(ctx context.Context, producer *kafka.Producer, job *KafkaJob, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ctx cancelled: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err := producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &job.Topic,
			Partition: job.Partition,
		},
		Key:   job.Key,
		Value: job.Value,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce error: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e, ok := <-deliveryChan:
		if !ok {
			return errors.New("delivery channel closed unexpectedly")
		}
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("invalid message type: %T", e)
		}
		return msg.TopicPartition.Error
	case <-timer.C:
		go safeDrain(deliveryChan)
		return fmt.Errorf("delivery timeout (>%v)", timeout)
	case <-ctx.Done():
		go safeDrain(deliveryChan)
		return fmt.Errorf("ctx cancelled: %w", ctx.Err())
	}
}

// safeDrain 超时或取消后仍要读走回执，避免 librdkafka 回调阻塞
func safeDrain(ch <-chan kafka.Event) {
	defer func() {
		_ = recover()
	}()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
	}
}
