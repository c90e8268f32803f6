package processor

import (
	"fmt"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

// FindCustodianAddress 由程序 ID 与固定种子 "escrow" 推导 PDA。
// PDA 不在 ed25519 曲线上、没有私钥，只有程序本身能以它的身份签名；
// 同一个 PDA 可以同时持有多笔托管的临时 TokenAccount。
func FindCustodianAddress(programID types.Pubkey) (types.Pubkey, uint8, error) {
	pda, bump, err := common.FindProgramAddress([][]byte{[]byte(consts.EscrowSeed)}, programID.ToCommon())
	if err != nil {
		return types.Pubkey{}, 0, fmt.Errorf("find program address: %w", err)
	}
	return types.PubkeyFromCommon(pda), bump, nil
}
