package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/accountstore"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/instruction"
	"escrow-sol/internal/logic/runtime"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/logic/tokenprogram"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"gopkg.in/yaml.v3"
)

// AccountKind 场景账户的数据构造方式
type AccountKind string

const (
	KindRaw    AccountKind = "raw"    // DataSize 字节的全零数据，owner 默认系统程序
	KindToken  AccountKind = "token"  // 已初始化的 TokenAccount，owner 默认 Token Program
	KindEscrow AccountKind = "escrow" // 未初始化的托管账户，owner 默认托管程序
)

type TokenSpec struct {
	Mint   types.Pubkey `yaml:"mint"`
	Owner  types.Pubkey `yaml:"owner"`
	Amount uint64       `yaml:"amount"`
}

type AccountSpec struct {
	Name     string        `yaml:"name"`
	Key      types.Pubkey  `yaml:"key"`
	Kind     AccountKind   `yaml:"kind"`
	Lamports *uint64       `yaml:"lamports"` // 为空时 token / escrow 取免租最低余额
	Owner    *types.Pubkey `yaml:"owner"`
	DataSize int           `yaml:"data_size"`
	Token    *TokenSpec    `yaml:"token"`
}

type InitEscrowSpec struct {
	Initializer      types.Pubkey `yaml:"initializer"`
	TempTokenAccount types.Pubkey `yaml:"temp_token_account"`
	ReceivingAccount types.Pubkey `yaml:"receiving_account"`
	EscrowAccount    types.Pubkey `yaml:"escrow_account"`
	Amount           uint64       `yaml:"amount"`
}

// Scenario 一次本地模拟：初始账户 + 一笔 InitEscrow 交易
type Scenario struct {
	ProgramID  types.Pubkey   `yaml:"program_id"`
	Signers    []types.Pubkey `yaml:"signers"` // 为空时只有 initializer 签名
	Accounts   []AccountSpec  `yaml:"accounts"`
	InitEscrow InitEscrowSpec `yaml:"init_escrow"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.ProgramID.IsZero() {
		return errors.New("scenario: program_id is required")
	}
	seen := make(map[types.Pubkey]bool, len(s.Accounts))
	for i, acc := range s.Accounts {
		if seen[acc.Key] {
			return fmt.Errorf("scenario: account %d (%s) duplicated", i, acc.Key)
		}
		seen[acc.Key] = true

		switch acc.Kind {
		case KindRaw, KindEscrow, "":
		case KindToken:
			if acc.Token == nil {
				return fmt.Errorf("scenario: token account %s missing token spec", acc.Key)
			}
		default:
			return fmt.Errorf("scenario: account %s has unknown kind %q", acc.Key, acc.Kind)
		}
		if acc.DataSize < 0 {
			return fmt.Errorf("scenario: account %s has negative data_size", acc.Key)
		}
	}
	return nil
}

// BuildAccounts 按场景构造初始账户
func (s *Scenario) BuildAccounts(rent sysvar.Rent) map[types.Pubkey]*core.Account {
	out := make(map[types.Pubkey]*core.Account, len(s.Accounts))
	for _, spec := range s.Accounts {
		acc := &core.Account{}
		switch spec.Kind {
		case KindToken:
			acc.Owner = consts.TokenProgram
			acc.Data = tokenprogram.NewTokenAccountData(spec.Token.Mint, spec.Token.Owner, spec.Token.Amount)
			acc.Lamports = rent.MinimumBalance(token.TokenAccountSize)
		case KindEscrow:
			acc.Owner = s.ProgramID
			acc.Data = make([]byte, state.EscrowLen)
			acc.Lamports = rent.MinimumBalance(state.EscrowLen)
		default:
			acc.Owner = consts.SystemProgram
			acc.Data = make([]byte, spec.DataSize)
		}
		if spec.Lamports != nil {
			acc.Lamports = *spec.Lamports
		}
		if spec.Owner != nil {
			acc.Owner = *spec.Owner
		}
		out[spec.Key] = acc
	}
	return out
}

// Seed 把初始账户写入存储
func (s *Scenario) Seed(ctx context.Context, store accountstore.Store, rent sysvar.Rent) error {
	if err := store.Commit(ctx, s.BuildAccounts(rent)); err != nil {
		return fmt.Errorf("seed scenario accounts: %w", err)
	}
	return nil
}

func (s *Scenario) Transaction() *runtime.Transaction {
	signers := s.Signers
	if len(signers) == 0 {
		signers = []types.Pubkey{s.InitEscrow.Initializer}
	}
	return &runtime.Transaction{
		Signers: signers,
		Instructions: []sdktypes.Instruction{
			instruction.NewInitEscrowInstruction(instruction.InitEscrowParam{
				ProgramID:        s.ProgramID,
				Initializer:      s.InitEscrow.Initializer,
				TempTokenAccount: s.InitEscrow.TempTokenAccount,
				ReceivingAccount: s.InitEscrow.ReceivingAccount,
				EscrowAccount:    s.InitEscrow.EscrowAccount,
				Amount:           s.InitEscrow.Amount,
			}),
		},
	}
}

// AccountName 返回场景中账户的名字，未命名时用地址
func (s *Scenario) AccountName(key types.Pubkey) string {
	for _, spec := range s.Accounts {
		if spec.Key == key && spec.Name != "" {
			return spec.Name
		}
	}
	return key.String()
}
