package core

import (
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// Invoker 跨程序调用（CPI）的执行者，由运行时注入。
// accounts 必须包含 ix 引用的全部账户以及被调用程序本身的账户。
type Invoker interface {
	Invoke(ix sdktypes.Instruction, accounts []*AccountInfo) error
}

// Program 一个链上程序的入口：无状态，所有状态都在 accounts 中
type Program interface {
	Process(invoker Invoker, programID types.Pubkey, accounts []*AccountInfo, data []byte) error
}

// ProgramFunc 让普通函数实现 Program
type ProgramFunc func(invoker Invoker, programID types.Pubkey, accounts []*AccountInfo, data []byte) error

func (f ProgramFunc) Process(invoker Invoker, programID types.Pubkey, accounts []*AccountInfo, data []byte) error {
	return f(invoker, programID, accounts, data)
}
