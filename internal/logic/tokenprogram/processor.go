package tokenprogram

import (
	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/program/token"
)

// Program 本地运行时中的 Token Program 替身，只实现托管流程需要的 SetAuthority(AccountOwner)
type Program struct{}

var _ core.Program = (*Program)(nil)

func New() *Program {
	return &Program{}
}

func (p *Program) Process(_ core.Invoker, programID types.Pubkey, accounts []*core.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return InvalidInstruction
	}

	switch data[0] {
	case byte(token.InstructionSetAuthority):
		logger.Debugf("[TokenProgram] Instruction: SetAuthority")
		return processSetAuthority(programID, accounts, data[1:])
	default:
		return InvalidInstruction
	}
}

// setAuthorityArgs [authority_type u8][COption<Pubkey>: 1 字节 tag + 32 字节]
type setAuthorityArgs struct {
	authorityType uint8
	newAuthority  *types.Pubkey
}

func unpackSetAuthority(data []byte) (setAuthorityArgs, error) {
	if len(data) < 2 {
		return setAuthorityArgs{}, InvalidInstruction
	}
	args := setAuthorityArgs{authorityType: data[0]}
	switch data[1] {
	case 0:
	case 1:
		if len(data) < 2+types.PubkeySize {
			return setAuthorityArgs{}, InvalidInstruction
		}
		pk, err := types.PubkeyFromBytes(data[2 : 2+types.PubkeySize])
		if err != nil {
			return setAuthorityArgs{}, InvalidInstruction
		}
		args.newAuthority = &pk
	default:
		return setAuthorityArgs{}, InvalidInstruction
	}
	return args, nil
}

func processSetAuthority(programID types.Pubkey, accounts []*core.AccountInfo, data []byte) error {
	args, err := unpackSetAuthority(data)
	if err != nil {
		return err
	}

	iter := core.NewAccountIter(accounts)
	account, err := iter.Next()
	if err != nil {
		return err
	}
	authority, err := iter.Next()
	if err != nil {
		return err
	}

	if programID != consts.TokenProgram || account.Owner() != programID {
		return core.ErrIncorrectProgramID
	}
	// 只支持 TokenAccount，Mint 或其他长度的数据一律视为参数错误
	if account.DataLen() != token.TokenAccountSize {
		return core.ErrInvalidArgument
	}
	switch accountState(account.Data()) {
	case stateUninitialized:
		return core.ErrUninitializedAccount
	case stateInitialized:
	case stateFrozen:
		return AccountFrozen
	default:
		return core.ErrInvalidAccountData
	}
	tokenAccount, err := token.TokenAccountFromData(account.Data())
	if err != nil {
		return core.ErrInvalidAccountData
	}

	if args.authorityType != byte(token.AuthorityTypeAccountOwner) {
		return AuthorityTypeNotSupported
	}

	// 先校验当前 owner，再检查新 owner
	if types.PubkeyFromCommon(tokenAccount.Owner) != authority.Key {
		return OwnerMismatch
	}
	if !authority.IsSigner {
		return core.ErrMissingRequiredSignature
	}
	// 账户 owner 不能置空
	if args.newAuthority == nil {
		return InvalidInstruction
	}

	setOwner(account.Data(), *args.newAuthority)
	logger.Debugf("[TokenProgram] SetAuthority: account=%s, owner %s -> %s", account.Key, authority.Key, args.newAuthority)
	return nil
}
