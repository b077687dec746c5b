package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey Solana 公钥（32 字节原始值），文本形态为 base58。
type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero 判断是否为全零值（链上 IDL 账户未设置 authority 时的占位）。
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时 panic（仅用于可信的常量表）
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}
