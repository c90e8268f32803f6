package state

import (
	"fmt"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"

	"github.com/near/borsh-go"
)

// EscrowLen 托管记录定长布局（无填充、无版本号，字段调整不向前兼容）：
//
//	[0]      is_initialized (bool)
//	[1:33]   initializer_pubkey
//	[33:65]  temp_token_account_pubkey
//	[65:97]  initializer_token_to_receive_account_pubkey
//	[97:105] expected_amount (u64 LE)
const EscrowLen = 1 + types.PubkeySize*3 + 8

// Escrow 一笔交易的持久化状态，保存在托管账户的数据区
type Escrow struct {
	Initialized      bool
	Initializer      types.Pubkey // 发起人
	TempTokenAccount types.Pubkey // 临时 TokenAccount，owner 已转给 PDA
	ReceivingAccount types.Pubkey // 发起人接收对价代币的 TokenAccount
	ExpectedAmount   uint64       // 解锁交易所需的对价代币数量
}

func (e *Escrow) IsInitialized() bool {
	return e.Initialized
}

// Pack 将记录编码写入 dst，dst 长度必须恰好为 EscrowLen
func (e *Escrow) Pack(dst []byte) error {
	if len(dst) != EscrowLen {
		return core.ErrInvalidAccountData
	}
	data, err := borsh.Serialize(*e)
	if err != nil {
		return fmt.Errorf("serialize escrow: %w", err)
	}
	if len(data) != EscrowLen {
		return fmt.Errorf("serialize escrow: got %d bytes, want %d", len(data), EscrowLen)
	}
	copy(dst, data)
	return nil
}

// UnpackUnchecked 解码记录，不要求已初始化（全零数据合法）。
// 长度必须恰好为 EscrowLen，标志字节只能是 0 或 1，否则返回 ErrInvalidAccountData。
func UnpackUnchecked(src []byte) (*Escrow, error) {
	if len(src) != EscrowLen {
		return nil, core.ErrInvalidAccountData
	}
	var e Escrow
	if err := borsh.Deserialize(&e, src); err != nil {
		return nil, core.ErrInvalidAccountData
	}
	return &e, nil
}

// Unpack 解码记录，并要求记录已初始化
func Unpack(src []byte) (*Escrow, error) {
	e, err := UnpackUnchecked(src)
	if err != nil {
		return nil, err
	}
	if !e.IsInitialized() {
		return nil, core.ErrUninitializedAccount
	}
	return e, nil
}
