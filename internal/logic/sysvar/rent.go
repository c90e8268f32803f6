package sysvar

import (
	"fmt"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/logic/core"

	"github.com/near/borsh-go"
)

const (
	// AccountStorageOverhead 每个账户在数据区之外额外计费的字节数
	AccountStorageOverhead uint64 = 128

	DefaultLamportsPerByteYear uint64  = 3480
	DefaultExemptionThreshold  float64 = 2.0
	DefaultBurnPercent         uint8   = 50

	// RentLen u64 + f64 + u8
	RentLen = 17
)

// Rent 租金参数，数据来自 Rent sysvar 账户
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64 // 免租所需的年数
	BurnPercent         uint8
}

func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance 数据长度为 dataLen 的账户免租所需的最小余额
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := AccountStorageOverhead + uint64(dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt 余额是否满足免租
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// Pack 编码为 sysvar 账户数据
func (r Rent) Pack() ([]byte, error) {
	data, err := borsh.Serialize(r)
	if err != nil {
		return nil, fmt.Errorf("serialize rent: %w", err)
	}
	return data, nil
}

// FromAccountInfo 从 Rent sysvar 账户读取租金参数，账户地址不是 Rent sysvar 或数据无法解析时返回 ErrInvalidArgument
func FromAccountInfo(ai *core.AccountInfo) (Rent, error) {
	if ai.Key != consts.SysvarRent {
		return Rent{}, core.ErrInvalidArgument
	}
	if ai.DataLen() < RentLen {
		return Rent{}, core.ErrInvalidArgument
	}
	var r Rent
	if err := borsh.Deserialize(&r, ai.Data()[:RentLen]); err != nil {
		return Rent{}, core.ErrInvalidArgument
	}
	return r, nil
}
