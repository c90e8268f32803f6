package core

import (
	"escrow-sol/internal/types"
)

// EventType 事件类别，编码时写在消息前 4 字节
type EventType uint32

const (
	EventUnknown           EventType = 0
	EventEscrowInitialized EventType = 1
)

// EscrowEvent 托管初始化成功（已提交）后产生的事件
type EscrowEvent struct {
	Type             EventType
	TxID             types.Hash
	Escrow           types.Pubkey // 托管状态账户
	Initializer      types.Pubkey
	TempTokenAccount types.Pubkey
	ReceivingAccount types.Pubkey
	ExpectedAmount   uint64
	Custodian        types.Pubkey // PDA，临时 TokenAccount 的新 owner
	Bump             uint8
}

// Key Kafka 分区 key，按托管账户拆分
func (e *EscrowEvent) Key() []byte {
	return e.Escrow[:]
}
