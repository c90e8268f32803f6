package runtime

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/accountstore"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

// Transaction 待执行的交易：签名者集合 + 按顺序执行的指令
type Transaction struct {
	Signers      []types.Pubkey
	Instructions []sdktypes.Instruction
}

type metaBody struct {
	Key        types.Pubkey
	IsSigner   bool
	IsWritable bool
}

type instructionBody struct {
	ProgramID types.Pubkey
	Accounts  []metaBody
	Data      []byte
}

type messageBody struct {
	Signers      []types.Pubkey
	Instructions []instructionBody
}

// ID 交易标识：消息 borsh 编码后的 sha256
func (tx *Transaction) ID() (types.Hash, error) {
	msg := messageBody{
		Signers:      tx.Signers,
		Instructions: make([]instructionBody, 0, len(tx.Instructions)),
	}
	if msg.Signers == nil {
		msg.Signers = []types.Pubkey{}
	}
	for _, ix := range tx.Instructions {
		body := instructionBody{
			ProgramID: types.PubkeyFromCommon(ix.ProgramID),
			Accounts:  make([]metaBody, 0, len(ix.Accounts)),
			Data:      ix.Data,
		}
		if body.Data == nil {
			body.Data = []byte{}
		}
		for _, meta := range ix.Accounts {
			body.Accounts = append(body.Accounts, metaBody{
				Key:        types.PubkeyFromCommon(meta.PubKey),
				IsSigner:   meta.IsSigner,
				IsWritable: meta.IsWritable,
			})
		}
		msg.Instructions = append(msg.Instructions, body)
	}

	raw, err := borsh.Serialize(msg)
	if err != nil {
		return types.Hash{}, fmt.Errorf("serialize transaction message: %w", err)
	}
	return types.Hash(sha256.Sum256(raw)), nil
}

// accountKeys 交易引用的全部地址（去重，保持首次出现顺序）
func (tx *Transaction) accountKeys() []types.Pubkey {
	seen := make(map[types.Pubkey]struct{})
	var keys []types.Pubkey
	add := func(key types.Pubkey) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, ix := range tx.Instructions {
		add(types.PubkeyFromCommon(ix.ProgramID))
		for _, meta := range ix.Accounts {
			add(types.PubkeyFromCommon(meta.PubKey))
		}
	}
	return keys
}

// Invocation 一次程序调用记录，Depth 为 0 表示顶层指令
type Invocation struct {
	Depth     int
	ProgramID types.Pubkey
	Accounts  []types.Pubkey
	Data      []byte
}

// TransactionResult 执行结果。失败时 Accounts 为空，Invocations / Logs 保留到出错为止
type TransactionResult struct {
	ID          types.Hash
	Accounts    map[types.Pubkey]*core.Account // 已提交的可写账户
	Invocations []Invocation
	Logs        []string
}

type trace struct {
	invocations []Invocation
	logs        []string
}

func (t *trace) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.logs = append(t.logs, msg)
	logger.Debugf("[Runtime] %s", msg)
}

// Runtime 本地账本：在工作副本上执行交易，全部指令成功后才一次性提交到 Store（Store.Update）
type Runtime struct {
	mu       sync.Mutex
	store    accountstore.Store
	rent     sysvar.Rent
	programs map[types.Pubkey]core.Program
}

func New(store accountstore.Store, rent sysvar.Rent) *Runtime {
	return &Runtime{
		store:    store,
		rent:     rent,
		programs: make(map[types.Pubkey]core.Program),
	}
}

// Register 注册程序，需在执行交易前完成
func (rt *Runtime) Register(programID types.Pubkey, program core.Program) {
	rt.programs[programID] = program
}

// maxCommitAttempts 存储报告并发冲突时最多重新执行的次数（含首次）
const maxCommitAttempts = 3

// ProcessTransaction 执行交易。任一指令失败时丢弃所有修改并返回 *InstructionError。
// 读取与提交之间账户被其他运行时修改时整笔交易基于最新状态重新执行，
// 重试耗尽后返回 accountstore.ErrConflict。
func (rt *Runtime) ProcessTransaction(ctx context.Context, tx *Transaction) (*TransactionResult, error) {
	if tx == nil || len(tx.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	id, err := tx.ID()
	if err != nil {
		return nil, err
	}
	if err := checkSignatures(tx); err != nil {
		return nil, err
	}

	// 同一进程内串行执行；跨进程的并发由 Store.Update 的冲突检测兜底
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for attempt := 1; ; attempt++ {
		result, err := rt.processOnce(ctx, id, tx)
		if !errors.Is(err, accountstore.ErrConflict) || attempt >= maxCommitAttempts {
			return result, err
		}
		logger.Warnf("[Runtime] 提交冲突，重新执行: tx=%s, attempt=%d", id, attempt)
	}
}

func (rt *Runtime) processOnce(ctx context.Context, id types.Hash, tx *Transaction) (*TransactionResult, error) {
	keys := tx.accountKeys()
	tr := &trace{}
	var committed map[types.Pubkey]*core.Account

	err := rt.store.Update(ctx, keys, func(loaded map[types.Pubkey]*core.Account) (map[types.Pubkey]*core.Account, error) {
		tr = &trace{}
		working, synthesized, err := rt.stage(keys, loaded)
		if err != nil {
			return nil, err
		}

		for i, ix := range tx.Instructions {
			programID := types.PubkeyFromCommon(ix.ProgramID)
			infos := make([]*core.AccountInfo, 0, len(ix.Accounts))
			for _, meta := range ix.Accounts {
				key := types.PubkeyFromCommon(meta.PubKey)
				infos = append(infos, core.NewAccountInfo(key, meta.IsSigner, meta.IsWritable, working[key]))
			}
			if err := rt.execute(tr, 0, programID, infos, ix.Data); err != nil {
				return nil, &InstructionError{Index: i, Err: err}
			}
		}

		committed = make(map[types.Pubkey]*core.Account)
		for _, ix := range tx.Instructions {
			for _, meta := range ix.Accounts {
				key := types.PubkeyFromCommon(meta.PubKey)
				if !meta.IsWritable || synthesized[key] {
					continue
				}
				committed[key] = working[key].Clone()
			}
		}
		return committed, nil
	})

	var ixErr *InstructionError
	switch {
	case errors.As(err, &ixErr):
		logger.Warnf("[Runtime] 交易执行失败，丢弃全部修改: tx=%s, ix=%d, err=%v", id, ixErr.Index, ixErr.Err)
		return &TransactionResult{ID: id, Invocations: tr.invocations, Logs: tr.logs}, err
	case errors.Is(err, accountstore.ErrConflict):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("update accounts: %w", err)
	}

	logger.Infof("[Runtime] 交易已提交: tx=%s, instructions=%d, accounts=%d", id, len(tx.Instructions), len(committed))
	return &TransactionResult{
		ID:          id,
		Accounts:    committed,
		Invocations: tr.invocations,
		Logs:        tr.logs,
	}, nil
}

func checkSignatures(tx *Transaction) error {
	signed := make(map[types.Pubkey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signed[s] = true
	}
	for _, ix := range tx.Instructions {
		for _, meta := range ix.Accounts {
			key := types.PubkeyFromCommon(meta.PubKey)
			if meta.IsSigner && !signed[key] {
				return fmt.Errorf("%w: %s", ErrMissingSignature, key)
			}
		}
	}
	return nil
}

// stage 构造工作副本：已注册程序与租金 sysvar 由运行时合成，其余来自存储，不存在的视为空的系统账户
func (rt *Runtime) stage(keys []types.Pubkey, loaded map[types.Pubkey]*core.Account) (map[types.Pubkey]*core.Account, map[types.Pubkey]bool, error) {
	working := make(map[types.Pubkey]*core.Account, len(keys))
	synthesized := make(map[types.Pubkey]bool)

	for _, key := range keys {
		if _, ok := rt.programs[key]; ok {
			working[key] = &core.Account{
				Lamports:   1,
				Owner:      consts.BPFLoaderUpgradeable,
				Executable: true,
				Data:       []byte{},
			}
			synthesized[key] = true
			continue
		}
		if key == consts.SysvarRent {
			data, err := rt.rent.Pack()
			if err != nil {
				return nil, nil, fmt.Errorf("pack rent sysvar: %w", err)
			}
			working[key] = &core.Account{
				Lamports: rt.rent.MinimumBalance(len(data)),
				Owner:    consts.SysvarProgram,
				Data:     data,
			}
			synthesized[key] = true
			continue
		}
		if acc, ok := loaded[key]; ok && acc != nil {
			working[key] = acc.Clone()
			continue
		}
		working[key] = &core.Account{Owner: consts.SystemProgram, Data: []byte{}}
	}
	return working, synthesized, nil
}

// execute 在新帧中运行程序，返回前校验该帧内的账户修改
func (rt *Runtime) execute(tr *trace, depth int, programID types.Pubkey, infos []*core.AccountInfo, data []byte) error {
	program, ok := rt.programs[programID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, programID)
	}

	f := newFrame(programID, depth, infos)
	tr.invocations = append(tr.invocations, Invocation{
		Depth:     depth,
		ProgramID: programID,
		Accounts:  f.keys,
		Data:      data,
	})
	tr.logf("Program %s invoke [%d]", programID, depth+1)

	ic := &invokeContext{rt: rt, frame: f, trace: tr}
	err := program.Process(ic, programID, infos, data)
	if err == nil {
		err = f.verify()
	}
	if err != nil {
		tr.logf("Program %s failed: %v", programID, err)
		return err
	}
	tr.logf("Program %s success", programID)
	return nil
}
