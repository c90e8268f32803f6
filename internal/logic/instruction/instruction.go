package instruction

import (
	"encoding/binary"
	"fmt"

	"escrow-sol/internal/logic/escrowerr"

	"github.com/near/borsh-go"
)

// Tag 指令判别字节（data[0]）
type Tag uint8

const (
	// TagInitEscrow 发起交易：创建并填充托管账户，把临时 TokenAccount 的 owner 转给 PDA
	//
	// 账户顺序：
	//  0. [signer]   发起人
	//  1. [writable] 临时 TokenAccount（由发起人预先创建并持有）
	//  2. []         发起人接收对价代币的 TokenAccount
	//  3. [writable] 托管账户，保存交易的全部信息
	//  4. []         Rent sysvar
	//  5. []         Token Program
	TagInitEscrow Tag = 0
)

const amountSize = 8

// EscrowInstruction 托管程序的指令（封闭集合，仅本包内的类型实现）
type EscrowInstruction interface {
	Tag() Tag
	isEscrowInstruction()
}

// InitEscrow 发起人期望换回的对价代币数量
type InitEscrow struct {
	Amount uint64
}

func (InitEscrow) Tag() Tag { return TagInitEscrow }

func (InitEscrow) isEscrowInstruction() {}

type initEscrowData struct {
	Tag    uint8
	Amount uint64
}

// Pack 编码为 [tag][amount u64 LE]，共 9 字节
func (ix InitEscrow) Pack() []byte {
	data, err := borsh.Serialize(initEscrowData{Tag: uint8(TagInitEscrow), Amount: ix.Amount})
	if err != nil {
		// 定长结构，不会失败
		panic(fmt.Errorf("pack InitEscrow: %w", err))
	}
	return data
}

// Unpack 解析指令数据。
// 注意：金额之后多余的字节不做校验，直接忽略（沿用链上程序的既有行为）。
func Unpack(data []byte) (EscrowInstruction, error) {
	if len(data) == 0 {
		return nil, escrowerr.InvalidInstruction
	}
	tag, rest := Tag(data[0]), data[1:]

	switch tag {
	case TagInitEscrow:
		amount, err := unpackAmount(rest)
		if err != nil {
			return nil, err
		}
		return InitEscrow{Amount: amount}, nil
	default:
		return nil, escrowerr.InvalidInstruction
	}
}

func unpackAmount(data []byte) (uint64, error) {
	if len(data) < amountSize {
		return 0, escrowerr.InvalidInstruction
	}
	return binary.LittleEndian.Uint64(data[:amountSize]), nil
}
