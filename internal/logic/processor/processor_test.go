package processor

import (
	"bytes"
	"errors"
	"testing"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/escrowerr"
	"escrow-sol/internal/logic/instruction"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgramID   = types.Pubkey{0xE5, 0xC0}
	testInitializer = types.Pubkey{0xA1}
	testTempAccount = types.Pubkey{0xA2}
	testReceiving   = types.Pubkey{0xA3}
	testEscrow      = types.Pubkey{0xA4}
)

type invocation struct {
	ix       sdktypes.Instruction
	accounts []*core.AccountInfo
}

// recordingInvoker 记录 CPI 请求，返回预设的错误
type recordingInvoker struct {
	calls []invocation
	err   error
}

func (r *recordingInvoker) Invoke(ix sdktypes.Instruction, accounts []*core.AccountInfo) error {
	r.calls = append(r.calls, invocation{ix: ix, accounts: accounts})
	return r.err
}

type fixture struct {
	initializer *core.AccountInfo
	temp        *core.AccountInfo
	receiving   *core.AccountInfo
	escrow      *core.AccountInfo
	rent        *core.AccountInfo
	token       *core.AccountInfo
}

func newFixture(t *testing.T) *fixture {
	rentData, err := sysvar.DefaultRent().Pack()
	require.NoError(t, err)

	return &fixture{
		initializer: core.NewAccountInfo(testInitializer, true, false, &core.Account{
			Lamports: 10_000_000_000,
			Owner:    consts.SystemProgram,
		}),
		temp: core.NewAccountInfo(testTempAccount, false, true, &core.Account{
			Lamports: 2_039_280,
			Owner:    consts.TokenProgram,
			Data:     make([]byte, 165),
		}),
		receiving: core.NewAccountInfo(testReceiving, false, false, &core.Account{
			Lamports: 2_039_280,
			Owner:    consts.TokenProgram,
			Data:     make([]byte, 165),
		}),
		escrow: core.NewAccountInfo(testEscrow, false, true, &core.Account{
			Lamports: sysvar.DefaultRent().MinimumBalance(state.EscrowLen),
			Owner:    testProgramID,
			Data:     make([]byte, state.EscrowLen),
		}),
		rent: core.NewAccountInfo(consts.SysvarRent, false, false, &core.Account{
			Lamports: 1,
			Owner:    consts.SysvarProgram,
			Data:     rentData,
		}),
		token: core.NewAccountInfo(consts.TokenProgram, false, false, &core.Account{
			Lamports:   1,
			Owner:      consts.NativeLoader,
			Executable: true,
		}),
	}
}

func (f *fixture) accounts() []*core.AccountInfo {
	return []*core.AccountInfo{f.initializer, f.temp, f.receiving, f.escrow, f.rent, f.token}
}

func initData(amount uint64) []byte {
	return instruction.InitEscrow{Amount: amount}.Pack()
}

func snapshot(ai *core.AccountInfo) []byte {
	return bytes.Clone(ai.Data())
}

func TestProcess_InitEscrow(t *testing.T) {
	f := newFixture(t)
	inv := &recordingInvoker{}

	err := New().Process(inv, testProgramID, f.accounts(), initData(500))
	require.NoError(t, err)

	record, err := state.Unpack(f.escrow.Data())
	require.NoError(t, err)
	assert.True(t, record.IsInitialized())
	assert.Equal(t, uint64(500), record.ExpectedAmount)
	assert.Equal(t, testInitializer, record.Initializer)
	assert.Equal(t, testTempAccount, record.TempTokenAccount)
	assert.Equal(t, testReceiving, record.ReceivingAccount)

	pda, _, err := FindCustodianAddress(testProgramID)
	require.NoError(t, err)

	require.Len(t, inv.calls, 1)
	call := inv.calls[0]
	assert.Equal(t, consts.TokenProgram, types.PubkeyFromCommon(call.ix.ProgramID))

	// SetAuthority: [6][AccountOwner=2][Some=1][new authority]
	require.GreaterOrEqual(t, len(call.ix.Data), 35)
	assert.Equal(t, []byte{6, 2, 1}, call.ix.Data[:3])
	assert.Equal(t, pda[:], call.ix.Data[3:35])

	require.Len(t, call.ix.Accounts, 2)
	assert.Equal(t, testTempAccount, types.PubkeyFromCommon(call.ix.Accounts[0].PubKey))
	assert.True(t, call.ix.Accounts[0].IsWritable)
	assert.Equal(t, testInitializer, types.PubkeyFromCommon(call.ix.Accounts[1].PubKey))
	assert.True(t, call.ix.Accounts[1].IsSigner)

	assert.Equal(t, []*core.AccountInfo{f.temp, f.initializer, f.token}, call.accounts)
}

func TestProcess_IgnoresExtraAccounts(t *testing.T) {
	f := newFixture(t)
	inv := &recordingInvoker{}
	extra := core.NewAccountInfo(types.Pubkey{0xFF}, false, false, nil)

	err := New().Process(inv, testProgramID, append(f.accounts(), extra), initData(7))
	require.NoError(t, err)
	assert.Len(t, inv.calls, 1)
}

func TestProcess_MissingSignature(t *testing.T) {
	f := newFixture(t)
	f.initializer.IsSigner = false
	before := snapshot(f.escrow)
	inv := &recordingInvoker{}

	err := New().Process(inv, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, core.ErrMissingRequiredSignature)
	assert.Equal(t, before, f.escrow.Data())
	assert.Empty(t, inv.calls)
}

func TestProcess_ReceivingAccountNotOwnedByTokenProgram(t *testing.T) {
	f := newFixture(t)
	f.receiving.Account.Owner = consts.SystemProgram
	before := snapshot(f.escrow)

	err := New().Process(&recordingInvoker{}, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, core.ErrIncorrectProgramID)
	assert.Equal(t, before, f.escrow.Data())
}

func TestProcess_NotRentExempt(t *testing.T) {
	f := newFixture(t)
	f.escrow.Account.Lamports = sysvar.DefaultRent().MinimumBalance(state.EscrowLen) - 1
	before := snapshot(f.escrow)
	inv := &recordingInvoker{}

	err := New().Process(inv, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, escrowerr.NotRentExempt)
	assert.Equal(t, before, f.escrow.Data())
	assert.Empty(t, inv.calls)
}

func TestProcess_AlreadyInitialized(t *testing.T) {
	f := newFixture(t)
	inv := &recordingInvoker{}
	require.NoError(t, New().Process(inv, testProgramID, f.accounts(), initData(500)))
	before := snapshot(f.escrow)

	// 换一个发起人和金额再次初始化
	f.initializer.Key = types.Pubkey{0xB1}
	err := New().Process(inv, testProgramID, f.accounts(), initData(999))
	assert.ErrorIs(t, err, core.ErrAccountAlreadyInitialized)
	assert.Equal(t, before, f.escrow.Data())
	assert.Len(t, inv.calls, 1)
}

func TestProcess_WrongRentAccount(t *testing.T) {
	f := newFixture(t)
	f.rent.Key = types.Pubkey{0x55}

	err := New().Process(&recordingInvoker{}, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestProcess_EscrowDataWrongSize(t *testing.T) {
	f := newFixture(t)
	f.escrow.Account.Data = make([]byte, state.EscrowLen+1)
	f.escrow.Account.Lamports = 10_000_000_000

	err := New().Process(&recordingInvoker{}, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, core.ErrInvalidAccountData)
}

func TestProcess_WrongTokenProgram(t *testing.T) {
	f := newFixture(t)
	f.token.Key = types.Pubkey{0x77}
	inv := &recordingInvoker{}

	err := New().Process(inv, testProgramID, f.accounts(), initData(500))
	assert.ErrorIs(t, err, core.ErrIncorrectProgramID)
	assert.Empty(t, inv.calls)
}

func TestProcess_NotEnoughAccounts(t *testing.T) {
	for n := 0; n < 6; n++ {
		f := newFixture(t)
		err := New().Process(&recordingInvoker{}, testProgramID, f.accounts()[:n], initData(500))
		assert.ErrorIs(t, err, core.ErrNotEnoughAccountKeys, "accounts=%d", n)
	}
}

func TestProcess_InvalidInstruction(t *testing.T) {
	f := newFixture(t)
	before := snapshot(f.escrow)

	for _, data := range [][]byte{nil, {0, 1, 2}, {1, 0, 0, 0, 0, 0, 0, 0, 0}} {
		err := New().Process(&recordingInvoker{}, testProgramID, f.accounts(), data)
		assert.ErrorIs(t, err, escrowerr.InvalidInstruction)
	}
	assert.Equal(t, before, f.escrow.Data())
}

func TestProcess_InvokeErrorPropagatesUnchanged(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("token program failed")
	inv := &recordingInvoker{err: boom}

	err := New().Process(inv, testProgramID, f.accounts(), initData(500))
	assert.True(t, err == boom, "delegated error must be returned as-is, got %v", err)
}

func TestFindCustodianAddress_Deterministic(t *testing.T) {
	pda1, bump1, err := FindCustodianAddress(testProgramID)
	require.NoError(t, err)
	pda2, bump2, err := FindCustodianAddress(testProgramID)
	require.NoError(t, err)

	assert.Equal(t, pda1, pda2)
	assert.Equal(t, bump1, bump2)

	other, _, err := FindCustodianAddress(types.Pubkey{0x01})
	require.NoError(t, err)
	assert.NotEqual(t, pda1, other)

	// 使用推导出的 bump 重新计算应得到同一地址
	recomputed, err := common.CreateProgramAddress(
		[][]byte{[]byte(consts.EscrowSeed), {bump1}},
		testProgramID.ToCommon(),
	)
	require.NoError(t, err)
	assert.Equal(t, pda1, types.PubkeyFromCommon(recomputed))
}
