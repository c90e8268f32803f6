package core

import (
	"escrow-sol/internal/types"
)

// Account 链上账户的底层状态（余额、owner、数据），由运行时提供。
// CPI 时调用方与被调用方的 AccountInfo 共享同一个 *Account，被调用方的修改对调用方立即可见。
type Account struct {
	Lamports   uint64
	Owner      types.Pubkey
	Executable bool
	Data       []byte
}

// Clone 深拷贝账户（运行时暂存工作副本时使用）
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		Data:       data,
	}
}

// AccountInfo 一次调用中传入程序的账户句柄：地址 + 本次调用的权限标记 + 底层账户
type AccountInfo struct {
	Key        types.Pubkey
	IsSigner   bool
	IsWritable bool
	Account    *Account
}

func NewAccountInfo(key types.Pubkey, isSigner, isWritable bool, account *Account) *AccountInfo {
	if account == nil {
		account = &Account{}
	}
	return &AccountInfo{
		Key:        key,
		IsSigner:   isSigner,
		IsWritable: isWritable,
		Account:    account,
	}
}

func (ai *AccountInfo) Lamports() uint64 {
	return ai.Account.Lamports
}

func (ai *AccountInfo) Owner() types.Pubkey {
	return ai.Account.Owner
}

func (ai *AccountInfo) Executable() bool {
	return ai.Account.Executable
}

// Data 返回账户数据区（可原地修改，不可改变长度）
func (ai *AccountInfo) Data() []byte {
	return ai.Account.Data
}

func (ai *AccountInfo) DataLen() int {
	return len(ai.Account.Data)
}

// AccountIter 按位置依次取出账户，账户顺序即指令约定
type AccountIter struct {
	accounts []*AccountInfo
	pos      int
}

func NewAccountIter(accounts []*AccountInfo) *AccountIter {
	return &AccountIter{accounts: accounts}
}

// Next 取下一个账户，账户不足时返回 ErrNotEnoughAccountKeys
func (it *AccountIter) Next() (*AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	ai := it.accounts[it.pos]
	it.pos++
	return ai, nil
}
