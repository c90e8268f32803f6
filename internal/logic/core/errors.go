package core

import "fmt"

// ProgramError 运行时内置的程序错误，可直接用 == / errors.Is 比较
type ProgramError uint32

const (
	ErrInvalidArgument ProgramError = iota + 1
	ErrInvalidInstructionData
	ErrInvalidAccountData
	ErrAccountDataTooSmall
	ErrInsufficientFunds
	ErrIncorrectProgramID
	ErrMissingRequiredSignature
	ErrAccountAlreadyInitialized
	ErrUninitializedAccount
	ErrNotEnoughAccountKeys
)

var programErrorText = map[ProgramError]string{
	ErrInvalidArgument:           "invalid program argument",
	ErrInvalidInstructionData:    "invalid instruction data",
	ErrInvalidAccountData:        "invalid account data for instruction",
	ErrAccountDataTooSmall:       "account data too small for instruction",
	ErrInsufficientFunds:         "insufficient funds for instruction",
	ErrIncorrectProgramID:        "incorrect program id for instruction",
	ErrMissingRequiredSignature:  "missing required signature for instruction",
	ErrAccountAlreadyInitialized: "instruction requires an uninitialized account",
	ErrUninitializedAccount:      "instruction requires an initialized account",
	ErrNotEnoughAccountKeys:      "insufficient account keys for instruction",
}

func (e ProgramError) Error() string {
	if text, ok := programErrorText[e]; ok {
		return text
	}
	return fmt.Sprintf("program error %d", uint32(e))
}

// CustomError 程序自定义错误（对应链上 Custom(u32)）
type CustomError interface {
	error
	CustomCode() uint32
}
