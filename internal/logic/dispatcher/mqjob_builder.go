package dispatcher

import (
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/mq"
	"escrow-sol/internal/types"
	"escrow-sol/internal/utils"
)

// escrowEventBody 事件体的 borsh 布局，类型单独写在 4 字节前缀中
type escrowEventBody struct {
	TxID             types.Hash
	Escrow           types.Pubkey
	Initializer      types.Pubkey
	TempTokenAccount types.Pubkey
	ReceivingAccount types.Pubkey
	ExpectedAmount   uint64
	Custodian        types.Pubkey
	Bump             uint8
}

// EncodeEscrowEvent [u32 LE 事件类型][borsh 事件体]
func EncodeEscrowEvent(evt *core.EscrowEvent) ([]byte, error) {
	return utils.EncodeEvent(uint32(evt.Type), escrowEventBody{
		TxID:             evt.TxID,
		Escrow:           evt.Escrow,
		Initializer:      evt.Initializer,
		TempTokenAccount: evt.TempTokenAccount,
		ReceivingAccount: evt.ReceivingAccount,
		ExpectedAmount:   evt.ExpectedAmount,
		Custodian:        evt.Custodian,
		Bump:             evt.Bump,
	})
}

// DecodeEscrowEvent EncodeEscrowEvent 的逆过程，供消费方与测试使用
func DecodeEscrowEvent(raw []byte) (*core.EscrowEvent, error) {
	var body escrowEventBody
	eventType, err := utils.DecodeEvent(raw, &body)
	if err != nil {
		return nil, err
	}
	return &core.EscrowEvent{
		Type:             core.EventType(eventType),
		TxID:             body.TxID,
		Escrow:           body.Escrow,
		Initializer:      body.Initializer,
		TempTokenAccount: body.TempTokenAccount,
		ReceivingAccount: body.ReceivingAccount,
		ExpectedAmount:   body.ExpectedAmount,
		Custodian:        body.Custodian,
		Bump:             body.Bump,
	}, nil
}

// BuildEscrowKafkaJobs 每个事件一条消息，按托管账户地址分区，保证同一托管的事件有序。
// 返回的 Job 按分区排序，同分区内保持输入顺序。
func BuildEscrowKafkaJobs(events []*core.EscrowEvent, topic string, partitions int) ([]*mq.KafkaJob, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if partitions <= 0 {
		partitions = 1
	}

	buckets := make([][]*mq.KafkaJob, partitions)
	capPerPartition := utils.CalcCapPerPartition(len(events), partitions, 4)
	for _, evt := range events {
		value, err := EncodeEscrowEvent(evt)
		if err != nil {
			return nil, err
		}
		key := evt.Key()
		partition := utils.PartitionHashBytes(key, uint32(partitions))
		if buckets[partition] == nil {
			buckets[partition] = make([]*mq.KafkaJob, 0, capPerPartition)
		}
		buckets[partition] = append(buckets[partition], &mq.KafkaJob{
			Topic:     topic,
			Partition: int32(partition),
			Key:       key,
			Value:     value,
		})
	}

	jobs := make([]*mq.KafkaJob, 0, len(events))
	for _, bucket := range buckets {
		jobs = append(jobs, bucket...)
	}
	return jobs, nil
}
