package dispatcher

import (
	"fmt"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/instruction"
	"escrow-sol/internal/logic/processor"
	"escrow-sol/internal/logic/runtime"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/types"
)

// 托管账户在 InitEscrow 账户列表中的位置
const escrowAccountIndex = 3

// CollectEscrowEvents 从已提交的交易中提取 InitEscrow 事件。
// 只看顶层指令；托管记录取自提交后的账户状态。
func CollectEscrowEvents(programID types.Pubkey, tx *runtime.Transaction, result *runtime.TransactionResult) ([]*core.EscrowEvent, error) {
	if tx == nil || result == nil || result.Accounts == nil {
		return nil, nil
	}

	var events []*core.EscrowEvent
	for i, ix := range tx.Instructions {
		if types.PubkeyFromCommon(ix.ProgramID) != programID {
			continue
		}
		decoded, err := instruction.Unpack(ix.Data)
		if err != nil {
			continue
		}
		if _, ok := decoded.(instruction.InitEscrow); !ok {
			continue
		}
		if len(ix.Accounts) <= escrowAccountIndex {
			return nil, fmt.Errorf("instruction %d: %d accounts, escrow account missing", i, len(ix.Accounts))
		}

		escrowKey := types.PubkeyFromCommon(ix.Accounts[escrowAccountIndex].PubKey)
		acc, ok := result.Accounts[escrowKey]
		if !ok {
			return nil, fmt.Errorf("instruction %d: escrow account %s not committed", i, escrowKey)
		}
		record, err := state.Unpack(acc.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: decode escrow %s: %w", i, escrowKey, err)
		}
		custodian, bump, err := processor.FindCustodianAddress(programID)
		if err != nil {
			return nil, err
		}

		events = append(events, &core.EscrowEvent{
			Type:             core.EventEscrowInitialized,
			TxID:             result.ID,
			Escrow:           escrowKey,
			Initializer:      record.Initializer,
			TempTokenAccount: record.TempTokenAccount,
			ReceivingAccount: record.ReceivingAccount,
			ExpectedAmount:   record.ExpectedAmount,
			Custodian:        custodian,
			Bump:             bump,
		})
	}
	return events, nil
}
