package tokenprogram

import "fmt"

// TokenError Token Program 的自定义错误码（与 SPL Token 保持一致）
type TokenError uint32

const (
	OwnerMismatch             TokenError = 4
	InvalidInstruction        TokenError = 12
	AuthorityTypeNotSupported TokenError = 15
	AccountFrozen             TokenError = 17
)

func (e TokenError) Error() string {
	switch e {
	case OwnerMismatch:
		return "Error: owner does not match"
	case InvalidInstruction:
		return "Error: Invalid instruction"
	case AuthorityTypeNotSupported:
		return "Error: Account does not support specified authority type"
	case AccountFrozen:
		return "Error: Account is frozen"
	default:
		return fmt.Sprintf("token error %d", uint32(e))
	}
}

func (e TokenError) CustomCode() uint32 {
	return uint32(e)
}
