package processor

import (
	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/escrowerr"
	"escrow-sol/internal/logic/instruction"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
)

// Processor 托管程序的指令处理器，本身无状态，所有状态都在调用方传入的账户里。
//
// 事务约定：processInitEscrow 在发起 CPI 之前就已原地写入托管账户数据。
// 调用方必须在事务包装下执行 Process（例如 runtime.Runtime），Process 返回错误时丢弃本次调用的全部写入。
type Processor struct{}

var _ core.Program = (*Processor)(nil)

func New() *Processor {
	return &Processor{}
}

// Process 程序入口：解码指令并分派
func (p *Processor) Process(invoker core.Invoker, programID types.Pubkey, accounts []*core.AccountInfo, data []byte) error {
	ix, err := instruction.Unpack(data)
	if err != nil {
		return err
	}

	switch ix := ix.(type) {
	case instruction.InitEscrow:
		logger.Debugf("[EscrowProcessor] Instruction: InitEscrow, amount=%d", ix.Amount)
		return p.processInitEscrow(invoker, accounts, ix.Amount, programID)
	default:
		return escrowerr.InvalidInstruction
	}
}

func (p *Processor) processInitEscrow(
	invoker core.Invoker,
	accounts []*core.AccountInfo,
	amount uint64,
	programID types.Pubkey,
) error {
	iter := core.NewAccountIter(accounts)

	initializer, err := iter.Next()
	if err != nil {
		return err
	}
	if !initializer.IsSigner {
		return core.ErrMissingRequiredSignature
	}

	// 临时 TokenAccount 的可写性与归属由运行时在调用前保证，这里不再校验
	tempTokenAccount, err := iter.Next()
	if err != nil {
		return err
	}

	tokenToReceiveAccount, err := iter.Next()
	if err != nil {
		return err
	}
	if tokenToReceiveAccount.Owner() != consts.TokenProgram {
		return core.ErrIncorrectProgramID
	}

	escrowAccount, err := iter.Next()
	if err != nil {
		return err
	}

	rentAccount, err := iter.Next()
	if err != nil {
		return err
	}
	rent, err := sysvar.FromAccountInfo(rentAccount)
	if err != nil {
		return err
	}
	if !rent.IsExempt(escrowAccount.Lamports(), escrowAccount.DataLen()) {
		return escrowerr.NotRentExempt
	}

	escrowInfo, err := state.UnpackUnchecked(escrowAccount.Data())
	if err != nil {
		return err
	}
	if escrowInfo.IsInitialized() {
		return core.ErrAccountAlreadyInitialized
	}

	escrowInfo.Initialized = true
	escrowInfo.Initializer = initializer.Key
	escrowInfo.TempTokenAccount = tempTokenAccount.Key
	escrowInfo.ReceivingAccount = tokenToReceiveAccount.Key
	escrowInfo.ExpectedAmount = amount
	if err := escrowInfo.Pack(escrowAccount.Data()); err != nil {
		return err
	}

	pda, _, err := FindCustodianAddress(programID)
	if err != nil {
		return err
	}

	tokenProgram, err := iter.Next()
	if err != nil {
		return err
	}
	if tokenProgram.Key != consts.TokenProgram {
		return core.ErrIncorrectProgramID
	}

	newAuth := pda.ToCommon()
	ownerChangeIx := token.SetAuthority(token.SetAuthorityParam{
		Account:  tempTokenAccount.Key.ToCommon(),
		NewAuth:  &newAuth,
		AuthType: token.AuthorityTypeAccountOwner,
		Auth:     initializer.Key.ToCommon(),
		Signers:  []common.PublicKey{},
	})

	logger.Debugf("[EscrowProcessor] Calling the Token Program to transfer Token Account Ownership: account=%s, new_owner=%s",
		tempTokenAccount.Key, pda)
	// CPI 的错误原样返回
	return invoker.Invoke(ownerChangeIx, []*core.AccountInfo{
		tempTokenAccount,
		initializer,
		tokenProgram,
	})
}
