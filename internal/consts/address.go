package consts

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr        = "11111111111111111111111111111111"
	TokenProgramStr         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	NativeLoaderStr         = "NativeLoader1111111111111111111111111111111"
	BPFLoaderUpgradeableStr = "BPFLoaderUpgradeab1e11111111111111111111111"

	// Sysvars
	SysvarProgramStr = "Sysvar1111111111111111111111111111111111111"
	SysvarRentStr    = "SysvarRent111111111111111111111111111111111"
)
