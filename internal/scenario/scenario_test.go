package scenario

import (
	"context"
	"testing"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/accountstore"
	"escrow-sol/internal/logic/processor"
	"escrow-sol/internal/logic/runtime"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/logic/sysvar"
	"escrow-sol/internal/logic/tokenprogram"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice     = types.PubkeyFromBase58("3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET")
	aliceTemp = types.PubkeyFromBase58("2uHsSi4psiYEgmKYYR4S2isX9nVe9HrzqzzFxcZTmmuv")
	escrowKey = types.PubkeyFromBase58("24qYtJfKNivjpUbkoxs6VG2ijnP5xsbEgwVrK3sbxxkz")
	programID = types.PubkeyFromBase58("3r5TeLgf4gTKVPPduERAqyZbgcYt3Zdvc8t115UFtncH")
)

func TestLoad_SampleScenario(t *testing.T) {
	s, err := Load("../../etc/scenario.yaml")
	require.NoError(t, err)

	assert.Equal(t, programID, s.ProgramID)
	assert.Len(t, s.Accounts, 4)
	assert.Equal(t, uint64(500), s.InitEscrow.Amount)
	assert.Equal(t, "alice", s.AccountName(alice))
	assert.Equal(t, consts.TokenProgram.String(), s.AccountName(consts.TokenProgram))

	rent := sysvar.DefaultRent()
	accounts := s.BuildAccounts(rent)
	assert.Equal(t, uint64(10_000_000_000), accounts[alice].Lamports)
	assert.Equal(t, consts.SystemProgram, accounts[alice].Owner)

	temp := accounts[aliceTemp]
	assert.Equal(t, consts.TokenProgram, temp.Owner)
	assert.Equal(t, rent.MinimumBalance(token.TokenAccountSize), temp.Lamports)
	parsed, err := token.TokenAccountFromData(temp.Data)
	require.NoError(t, err)
	assert.Equal(t, alice, types.PubkeyFromCommon(parsed.Owner))

	escrow := accounts[escrowKey]
	assert.Equal(t, programID, escrow.Owner)
	assert.Len(t, escrow.Data, state.EscrowLen)
	assert.Equal(t, uint64(1_621_680), escrow.Lamports)

	tx := s.Transaction()
	assert.Equal(t, []types.Pubkey{alice}, tx.Signers)
	require.Len(t, tx.Instructions, 1)
	assert.Len(t, tx.Instructions[0].Accounts, 6)
}

func TestScenario_RunsOnRuntime(t *testing.T) {
	s, err := Load("../../etc/scenario.yaml")
	require.NoError(t, err)

	store := accountstore.NewMemoryStore()
	rent := sysvar.DefaultRent()
	require.NoError(t, s.Seed(context.Background(), store, rent))
	assert.Equal(t, 4, store.Len())

	rt := runtime.New(store, rent)
	rt.Register(s.ProgramID, processor.New())
	rt.Register(consts.TokenProgram, tokenprogram.New())

	_, err = rt.ProcessTransaction(context.Background(), s.Transaction())
	require.NoError(t, err)

	acc, ok := store.Get(escrowKey)
	require.True(t, ok)
	record, err := state.Unpack(acc.Data)
	require.NoError(t, err)
	assert.Equal(t, alice, record.Initializer)
	assert.Equal(t, uint64(500), record.ExpectedAmount)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing program", yaml: `accounts: []`},
		{name: "bad pubkey", yaml: `program_id: "abc"`},
		{
			name: "unknown kind",
			yaml: `
program_id: "3r5TeLgf4gTKVPPduERAqyZbgcYt3Zdvc8t115UFtncH"
accounts:
  - key: "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
    kind: mint
`,
		},
		{
			name: "token without spec",
			yaml: `
program_id: "3r5TeLgf4gTKVPPduERAqyZbgcYt3Zdvc8t115UFtncH"
accounts:
  - key: "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
    kind: token
`,
		},
		{
			name: "duplicated account",
			yaml: `
program_id: "3r5TeLgf4gTKVPPduERAqyZbgcYt3Zdvc8t115UFtncH"
accounts:
  - key: "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
  - key: "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestScenario_Overrides(t *testing.T) {
	s, err := Parse([]byte(`
program_id: "3r5TeLgf4gTKVPPduERAqyZbgcYt3Zdvc8t115UFtncH"
signers: ["24qYtJfKNivjpUbkoxs6VG2ijnP5xsbEgwVrK3sbxxkz"]
accounts:
  - key: "24qYtJfKNivjpUbkoxs6VG2ijnP5xsbEgwVrK3sbxxkz"
    kind: escrow
    lamports: 1
    owner: "11111111111111111111111111111111"
  - key: "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
    data_size: 8
`))
	require.NoError(t, err)

	accounts := s.BuildAccounts(sysvar.DefaultRent())
	assert.Equal(t, uint64(1), accounts[escrowKey].Lamports)
	assert.Equal(t, consts.SystemProgram, accounts[escrowKey].Owner)
	assert.Len(t, accounts[alice].Data, 8)
	assert.Equal(t, []types.Pubkey{escrowKey}, s.Transaction().Signers)
}
