package discriminator

import (
	"crypto/sha256"
	"fmt"

	"idl-kit-sol/internal/consts"
)

// Category 判别码的派生类别，决定哈希前缀。
type Category int

const (
	CategoryInstruction Category = iota // 指令，前缀 global
	CategoryAccount                     // 账户，前缀 account
	CategoryEvent                       // 事件，前缀 event
)

var categoryNames = []string{"instruction", "account", "event"}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Params 一代 IDL 的判别码派生参数表。
// 前缀与宽度随代际固定，由调用方显式传入，派生过程不依赖包级状态。
type Params struct {
	Version  string
	Width    int
	Prefixes map[Category]string
}

// V0 当前代的固定参数表：sha256("{前缀}:{名字}") 的前 8 字节。
func V0() Params {
	return Params{
		Version: "v0",
		Width:   consts.DiscriminatorLen,
		Prefixes: map[Category]string{
			CategoryInstruction: "global",
			CategoryAccount:     "account",
			CategoryEvent:       "event",
		},
	}
}

// Derive 计算 name 在 cat 类别下的判别码。
// 指令名须先转为 snake_case 再传入，账户/事件名保持原样；
// 同一输入在任意时刻派生结果一致。
func (p Params) Derive(cat Category, name string) ([]byte, error) {
	prefix, ok := p.Prefixes[cat]
	if !ok {
		return nil, fmt.Errorf("no namespace prefix for category %s in params %s", cat, p.Version)
	}
	if name == "" {
		return nil, fmt.Errorf("cannot derive discriminator for empty %s name", cat)
	}
	sum := sha256.Sum256([]byte(prefix + ":" + name))
	if p.Width <= 0 || p.Width > len(sum) {
		return nil, fmt.Errorf("invalid discriminator width %d in params %s", p.Width, p.Version)
	}
	out := make([]byte, p.Width)
	copy(out, sum[:p.Width])
	return out, nil
}
