package consts

// EscrowSeed PDA 推导使用的域分隔种子，托管程序的所有临时 TokenAccount 都归属于同一个 PDA
const EscrowSeed = "escrow"

// MaxInvokeDepth CPI 允许的最大嵌套深度（顶层指令深度为 0）
const MaxInvokeDepth = 4
