package consts

import (
	"escrow-sol/internal/types"
)

// 公钥形式的地址常量（types.Pubkey），用于链上比对
var (
	// Programs
	SystemProgram        types.Pubkey
	TokenProgram         types.Pubkey
	NativeLoader         types.Pubkey
	BPFLoaderUpgradeable types.Pubkey

	// Sysvars
	SysvarProgram types.Pubkey
	SysvarRent    types.Pubkey
)

// init 自动将 base58 字符串地址转换为 types.Pubkey
func init() {
	SystemProgram = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram = types.PubkeyFromBase58(TokenProgramStr)
	NativeLoader = types.PubkeyFromBase58(NativeLoaderStr)
	BPFLoaderUpgradeable = types.PubkeyFromBase58(BPFLoaderUpgradeableStr)

	SysvarProgram = types.PubkeyFromBase58(SysvarProgramStr)
	SysvarRent = types.PubkeyFromBase58(SysvarRentStr)
}
