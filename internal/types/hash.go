package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Hash 32 字节摘要，目前用作交易 ID
type Hash [32]byte

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash 解析 base58 形式的摘要，长度必须是 32 字节
func ParseHash(s string) (Hash, error) {
	var h Hash
	data, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(data) != len(h) {
		return h, fmt.Errorf("invalid hash length: got %d, want %d", len(data), len(h))
	}
	copy(h[:], data)
	return h, nil
}
