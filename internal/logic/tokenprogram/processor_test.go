package tokenprogram

import (
	"testing"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMint     = types.Pubkey{0x10}
	testOwner    = types.Pubkey{0x20}
	testAccount  = types.Pubkey{0x30}
	testNewOwner = types.Pubkey{0x40}
)

func setAuthorityData(authType token.AuthorityType) []byte {
	newAuth := testNewOwner.ToCommon()
	ix := token.SetAuthority(token.SetAuthorityParam{
		Account:  testAccount.ToCommon(),
		NewAuth:  &newAuth,
		AuthType: authType,
		Auth:     testOwner.ToCommon(),
	})
	return ix.Data
}

func newAccounts() (account, authority *core.AccountInfo) {
	account = core.NewAccountInfo(testAccount, false, true, &core.Account{
		Lamports: 2_039_280,
		Owner:    consts.TokenProgram,
		Data:     NewTokenAccountData(testMint, testOwner, 1000),
	})
	authority = core.NewAccountInfo(testOwner, true, false, &core.Account{
		Lamports: 1_000_000,
		Owner:    consts.SystemProgram,
	})
	return account, authority
}

func ownerOf(t *testing.T, ai *core.AccountInfo) types.Pubkey {
	parsed, err := token.TokenAccountFromData(ai.Data())
	require.NoError(t, err)
	return types.PubkeyFromCommon(parsed.Owner)
}

func TestNewTokenAccountData(t *testing.T) {
	data := NewTokenAccountData(testMint, testOwner, 1000)
	require.Len(t, data, token.TokenAccountSize)

	parsed, err := token.TokenAccountFromData(data)
	require.NoError(t, err)
	assert.Equal(t, testMint, types.PubkeyFromCommon(parsed.Mint))
	assert.Equal(t, testOwner, types.PubkeyFromCommon(parsed.Owner))
	assert.Equal(t, uint64(1000), parsed.Amount)
}

func TestSetAuthority_AccountOwner(t *testing.T) {
	account, authority := newAccounts()

	err := New().Process(nil, consts.TokenProgram, []*core.AccountInfo{account, authority}, setAuthorityData(token.AuthorityTypeAccountOwner))
	require.NoError(t, err)
	assert.Equal(t, testNewOwner, ownerOf(t, account))

	parsed, err := token.TokenAccountFromData(account.Data())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), parsed.Amount)
	assert.Equal(t, testMint, types.PubkeyFromCommon(parsed.Mint))
}

func TestSetAuthority_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(account, authority *core.AccountInfo)
		data   []byte
		want   error
	}{
		{
			name:   "authority not signer",
			mutate: func(_, authority *core.AccountInfo) { authority.IsSigner = false },
			want:   core.ErrMissingRequiredSignature,
		},
		{
			name:   "authority is not current owner",
			mutate: func(_, authority *core.AccountInfo) { authority.Key = types.Pubkey{0x99} },
			want:   OwnerMismatch,
		},
		{
			name:   "account not owned by token program",
			mutate: func(account, _ *core.AccountInfo) { account.Account.Owner = consts.SystemProgram },
			want:   core.ErrIncorrectProgramID,
		},
		{
			name:   "wrong data size",
			mutate: func(account, _ *core.AccountInfo) { account.Account.Data = make([]byte, 10) },
			want:   core.ErrInvalidArgument,
		},
		{
			name:   "uninitialized account",
			mutate: func(account, _ *core.AccountInfo) { account.Data()[stateOffset] = stateUninitialized },
			want:   core.ErrUninitializedAccount,
		},
		{
			name:   "invalid account state",
			mutate: func(account, _ *core.AccountInfo) { account.Data()[stateOffset] = 7 },
			want:   core.ErrInvalidAccountData,
		},
		{
			name: "frozen account checked before authority",
			mutate: func(account, authority *core.AccountInfo) {
				account.Data()[stateOffset] = stateFrozen
				authority.Key = types.Pubkey{0x99}
			},
			want: AccountFrozen,
		},
		{
			name:   "frozen account",
			mutate: func(account, _ *core.AccountInfo) { account.Data()[stateOffset] = stateFrozen },
			want:   AccountFrozen,
		},
		{
			name: "unsupported authority type",
			data: setAuthorityData(token.AuthorityTypeMintTokens),
			want: AuthorityTypeNotSupported,
		},
		{
			name: "missing new owner",
			data: []byte{byte(token.InstructionSetAuthority), byte(token.AuthorityTypeAccountOwner), 0},
			want: InvalidInstruction,
		},
		{
			name:   "owner checked before missing new owner",
			mutate: func(_, authority *core.AccountInfo) { authority.Key = types.Pubkey{0x99} },
			data:   []byte{byte(token.InstructionSetAuthority), byte(token.AuthorityTypeAccountOwner), 0},
			want:   OwnerMismatch,
		},
		{
			name:   "signature checked before missing new owner",
			mutate: func(_, authority *core.AccountInfo) { authority.IsSigner = false },
			data:   []byte{byte(token.InstructionSetAuthority), byte(token.AuthorityTypeAccountOwner), 0},
			want:   core.ErrMissingRequiredSignature,
		},
		{
			name: "invalid option tag",
			data: []byte{byte(token.InstructionSetAuthority), byte(token.AuthorityTypeAccountOwner), 2},
			want: InvalidInstruction,
		},
		{
			name: "truncated data",
			data: []byte{byte(token.InstructionSetAuthority), byte(token.AuthorityTypeAccountOwner), 1, 0xAA},
			want: InvalidInstruction,
		},
		{
			name: "unsupported instruction",
			data: []byte{byte(token.InstructionTransfer), 0, 0, 0, 0, 0, 0, 0, 0},
			want: InvalidInstruction,
		},
		{
			name: "empty data",
			data: []byte{},
			want: InvalidInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, authority := newAccounts()
			if tt.mutate != nil {
				tt.mutate(account, authority)
			}
			data := tt.data
			if data == nil {
				data = setAuthorityData(token.AuthorityTypeAccountOwner)
			}

			err := New().Process(nil, consts.TokenProgram, []*core.AccountInfo{account, authority}, data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSetAuthority_NotEnoughAccounts(t *testing.T) {
	account, _ := newAccounts()
	err := New().Process(nil, consts.TokenProgram, []*core.AccountInfo{account}, setAuthorityData(token.AuthorityTypeAccountOwner))
	assert.ErrorIs(t, err, core.ErrNotEnoughAccountKeys)
}

func TestSetAuthority_ClearsDelegate(t *testing.T) {
	account, authority := newAccounts()
	data := account.Data()
	data[delegateOffset] = 1
	delegate := types.Pubkey{0x77}
	copy(data[delegateOffset+4:], delegate[:])
	data[delegatedAmountOffset] = 50

	err := New().Process(nil, consts.TokenProgram, []*core.AccountInfo{account, authority}, setAuthorityData(token.AuthorityTypeAccountOwner))
	require.NoError(t, err)

	assert.Equal(t, make([]byte, 36), account.Data()[delegateOffset:delegateOffset+36])
	assert.Equal(t, make([]byte, 8), account.Data()[delegatedAmountOffset:delegatedAmountOffset+8])
	assert.Equal(t, testNewOwner, ownerOf(t, account))
}
