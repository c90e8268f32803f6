package instruction

import (
	"escrow-sol/internal/consts"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// InitEscrowParam 构造 InitEscrow 指令所需的账户与参数
type InitEscrowParam struct {
	ProgramID        types.Pubkey
	Initializer      types.Pubkey
	TempTokenAccount types.Pubkey
	ReceivingAccount types.Pubkey // 发起人接收对价代币的 TokenAccount
	EscrowAccount    types.Pubkey
	Amount           uint64
}

// NewInitEscrowInstruction 客户端构造 InitEscrow 指令，账户顺序与程序约定一致
func NewInitEscrowInstruction(param InitEscrowParam) sdktypes.Instruction {
	return sdktypes.Instruction{
		ProgramID: param.ProgramID.ToCommon(),
		Accounts: []sdktypes.AccountMeta{
			{PubKey: param.Initializer.ToCommon(), IsSigner: true, IsWritable: false},       // 发起人
			{PubKey: param.TempTokenAccount.ToCommon(), IsSigner: false, IsWritable: true},  // 临时 TokenAccount
			{PubKey: param.ReceivingAccount.ToCommon(), IsSigner: false, IsWritable: false}, // 接收账户
			{PubKey: param.EscrowAccount.ToCommon(), IsSigner: false, IsWritable: true},     // 托管账户
			{PubKey: consts.SysvarRent.ToCommon(), IsSigner: false, IsWritable: false},      // 租金 sysvar
			{PubKey: consts.TokenProgram.ToCommon(), IsSigner: false, IsWritable: false},    // Token Program
		},
		Data: InitEscrow{Amount: param.Amount}.Pack(),
	}
}
