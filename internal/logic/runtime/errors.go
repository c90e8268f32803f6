package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTransaction            = errors.New("transaction has no instructions")
	ErrMissingSignature            = errors.New("missing transaction signature")
	ErrProgramNotFound             = errors.New("program not registered")
	ErrMissingAccount              = errors.New("account not passed by the calling program")
	ErrPrivilegeEscalation         = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrCallDepthExceeded           = errors.New("cross-program invocation call depth too deep")
	ErrExternalAccountDataModified = errors.New("program modified data of an account it does not own")
	ErrReadonlyDataModified        = errors.New("program modified data of a read-only account")
	ErrAccountDataSizeChanged      = errors.New("program changed the size of an account")
	ErrModifiedOwner               = errors.New("program changed the owner of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
)

// InstructionError 交易中第 Index 条指令执行失败，Unwrap 得到程序返回的原始错误
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d failed: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
