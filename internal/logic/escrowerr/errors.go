package escrowerr

import "fmt"

// EscrowError 托管程序自定义错误，错误码即链上 Custom(u32) 的值
type EscrowError uint32

const (
	// InvalidInstruction 指令数据无法解析（tag 未知或金额字段不足 8 字节）
	InvalidInstruction EscrowError = iota
	// NotRentExempt 托管账户余额不足以免租
	NotRentExempt
	// ExpectedAmountMismatch 成交数量与托管记录不符（成交路径保留）
	ExpectedAmountMismatch
	// AmountOverflow 数量计算溢出（成交路径保留）
	AmountOverflow
)

var text = [...]string{
	InvalidInstruction:     "Invalid Instruction",
	NotRentExempt:          "Not Rent Exempt",
	ExpectedAmountMismatch: "Expected Amount Mismatch",
	AmountOverflow:         "Amount Overflow",
}

func (e EscrowError) Error() string {
	if int(e) < len(text) {
		return text[e]
	}
	return fmt.Sprintf("escrow error %d", uint32(e))
}

func (e EscrowError) CustomCode() uint32 {
	return uint32(e)
}
