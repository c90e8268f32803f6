package runtime

import (
	"bytes"
	"fmt"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

type accountSnapshot struct {
	lamports uint64
	owner    types.Pubkey
	data     []byte
}

// frame 一次程序调用（顶层指令或 CPI）能看到的账户及其权限。
// 同一地址在帧内出现多次时共享底层账户，权限取并集。
type frame struct {
	programID types.Pubkey
	depth     int
	keys      []types.Pubkey
	accounts  map[types.Pubkey]*core.Account
	signer    map[types.Pubkey]bool
	writable  map[types.Pubkey]bool
	pre       map[types.Pubkey]accountSnapshot
}

func newFrame(programID types.Pubkey, depth int, infos []*core.AccountInfo) *frame {
	f := &frame{
		programID: programID,
		depth:     depth,
		accounts:  make(map[types.Pubkey]*core.Account, len(infos)),
		signer:    make(map[types.Pubkey]bool, len(infos)),
		writable:  make(map[types.Pubkey]bool, len(infos)),
	}
	for _, ai := range infos {
		if _, ok := f.accounts[ai.Key]; !ok {
			f.keys = append(f.keys, ai.Key)
			f.accounts[ai.Key] = ai.Account
		}
		f.signer[ai.Key] = f.signer[ai.Key] || ai.IsSigner
		f.writable[ai.Key] = f.writable[ai.Key] || ai.IsWritable
	}
	f.snapshot()
	return f
}

// snapshot 记录当前状态作为后续校验的基线
func (f *frame) snapshot() {
	f.pre = make(map[types.Pubkey]accountSnapshot, len(f.keys))
	for _, key := range f.keys {
		acc := f.accounts[key]
		data := make([]byte, len(acc.Data))
		copy(data, acc.Data)
		f.pre[key] = accountSnapshot{lamports: acc.Lamports, owner: acc.Owner, data: data}
	}
}

// verify 检查自基线以来的修改是否合法：
// 只有 owner 为当前程序且可写的账户才能改数据；owner 与数据长度不可变；帧内 lamports 总和守恒。
func (f *frame) verify() error {
	var before, after uint64
	for _, key := range f.keys {
		pre := f.pre[key]
		acc := f.accounts[key]
		before += pre.lamports
		after += acc.Lamports

		if acc.Owner != pre.owner {
			return fmt.Errorf("%w: %s", ErrModifiedOwner, key)
		}
		if len(acc.Data) != len(pre.data) {
			return fmt.Errorf("%w: %s", ErrAccountDataSizeChanged, key)
		}
		if bytes.Equal(acc.Data, pre.data) {
			continue
		}
		if !f.writable[key] {
			return fmt.Errorf("%w: %s", ErrReadonlyDataModified, key)
		}
		if pre.owner != f.programID {
			return fmt.Errorf("%w: %s", ErrExternalAccountDataModified, key)
		}
	}
	if before != after {
		return fmt.Errorf("%w: program=%s, before=%d, after=%d", ErrUnbalancedInstruction, f.programID, before, after)
	}
	return nil
}

// invokeContext 注入给程序的 core.Invoker，绑定调用方的帧
type invokeContext struct {
	rt    *Runtime
	frame *frame
	trace *trace
}

// Invoke 执行 CPI。被调用程序与 ix 引用的账户都必须由调用方传入，且权限不能超出调用方所持有的。
// 被调用方的错误原样返回。
func (ic *invokeContext) Invoke(ix sdktypes.Instruction, accounts []*core.AccountInfo) error {
	caller := ic.frame
	if caller.depth+1 > consts.MaxInvokeDepth {
		return ErrCallDepthExceeded
	}

	passed := make(map[types.Pubkey]bool, len(accounts))
	for _, ai := range accounts {
		if ai == nil {
			continue
		}
		// 必须是调用方帧内的同一个账户，伪造的 AccountInfo 不被接受
		if acc, ok := caller.accounts[ai.Key]; !ok || acc != ai.Account {
			return fmt.Errorf("%w: %s", ErrMissingAccount, ai.Key)
		}
		passed[ai.Key] = true
	}

	programID := types.PubkeyFromCommon(ix.ProgramID)
	if !passed[programID] {
		return fmt.Errorf("%w: program %s", ErrMissingAccount, programID)
	}

	infos := make([]*core.AccountInfo, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		key := types.PubkeyFromCommon(meta.PubKey)
		if !passed[key] {
			return fmt.Errorf("%w: %s", ErrMissingAccount, key)
		}
		if (meta.IsSigner && !caller.signer[key]) || (meta.IsWritable && !caller.writable[key]) {
			return fmt.Errorf("%w: %s", ErrPrivilegeEscalation, key)
		}
		infos = append(infos, core.NewAccountInfo(key, meta.IsSigner, meta.IsWritable, caller.accounts[key]))
	}

	// 先确认调用方到目前为止的修改合法，再把被调用方的结果并入调用方基线
	if err := caller.verify(); err != nil {
		return err
	}
	if err := ic.rt.execute(ic.trace, caller.depth+1, programID, infos, ix.Data); err != nil {
		return err
	}
	caller.snapshot()
	return nil
}
