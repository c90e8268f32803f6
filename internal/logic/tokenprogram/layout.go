package tokenprogram

import (
	"encoding/binary"

	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/token"
)

// SPL TokenAccount 布局（165 字节）中需要直接改写的字段偏移
const (
	mintOffset            = 0
	ownerOffset           = 32
	amountOffset          = 64
	delegateOffset        = 72 // COption<Pubkey>: 4 字节 tag + 32 字节
	stateOffset           = 108
	delegatedAmountOffset = 121
)

// TokenAccount 状态字节
const (
	stateUninitialized byte = 0
	stateInitialized   byte = 1
	stateFrozen        byte = 2
)

// NewTokenAccountData 构造一个已初始化的 TokenAccount 数据区
func NewTokenAccountData(mint, owner types.Pubkey, amount uint64) []byte {
	data := make([]byte, token.TokenAccountSize)
	copy(data[mintOffset:], mint[:])
	copy(data[ownerOffset:], owner[:])
	binary.LittleEndian.PutUint64(data[amountOffset:], amount)
	data[stateOffset] = stateInitialized
	return data
}

func accountState(data []byte) byte {
	return data[stateOffset]
}

// setOwner 改写 owner，并清空 delegate（与 SPL Token 处理 AccountOwner 时一致）
func setOwner(data []byte, owner types.Pubkey) {
	copy(data[ownerOffset:ownerOffset+types.PubkeySize], owner[:])
	clear(data[delegateOffset : delegateOffset+4+types.PubkeySize])
	clear(data[delegatedAmountOffset : delegatedAmountOffset+8])
}
