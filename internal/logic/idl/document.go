package idl

import (
	"encoding/json"
	"fmt"
)

// Generation 文档所属的 IDL 代际。
type Generation int

const (
	GenerationUnknown Generation = iota
	GenerationLegacy             // 旧代：顶层 version/name，无判别码
	GenerationCurrent            // 当前代：metadata.spec == "0.1.0"
)

func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationCurrent:
		return "current"
	}
	return "unknown"
}

// Metadata 当前代文档的元信息，spec 字段标记代际。
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Spec        string `json:"spec"`
	Description string `json:"description,omitempty"`
}

// Idl 当前代 IDL 文档。字段顺序即序列化顺序。
type Idl struct {
	Address      string        `json:"address"`
	Metadata     Metadata      `json:"metadata"`
	Docs         []string      `json:"docs,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Accounts     []Account     `json:"accounts,omitempty"`
	Events       []Event       `json:"events,omitempty"`
	Errors       []ErrorCode   `json:"errors,omitempty"`
	Types        []TypeDef     `json:"types,omitempty"`
	Constants    []Constant    `json:"constants,omitempty"`
}

// Instruction 指令定义。判别码为定长字节串，派生规则见 discriminator 包。
type Instruction struct {
	Name          string               `json:"name"`
	Docs          []string             `json:"docs,omitempty"`
	Discriminator Bytes                `json:"discriminator"`
	Accounts      []InstructionAccount `json:"accounts"`
	Args          []Field              `json:"args"`
	Returns       *TypeRef             `json:"returns,omitempty"`
}

// InstructionAccount 指令账户项。Accounts 非空时为组合账户组，
// 此时除 Name 外的标志字段均无效。
type InstructionAccount struct {
	Name      string
	Docs      []string
	Writable  bool
	Signer    bool
	Optional  bool
	Address   string
	PDA       *PdaSpec
	Relations []string
	Accounts  []InstructionAccount
}

// instructionAccountWire 单一账户项的线上形态。
type instructionAccountWire struct {
	Name      string   `json:"name"`
	Docs      []string `json:"docs,omitempty"`
	Writable  bool     `json:"writable,omitempty"`
	Signer    bool     `json:"signer,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
	Address   string   `json:"address,omitempty"`
	PDA       *PdaSpec `json:"pda,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

func (a InstructionAccount) MarshalJSON() ([]byte, error) {
	if a.IsComposite() {
		return json.Marshal(struct {
			Name     string               `json:"name"`
			Accounts []InstructionAccount `json:"accounts"`
		}{a.Name, a.Accounts})
	}
	return json.Marshal(instructionAccountWire{
		Name:      a.Name,
		Docs:      a.Docs,
		Writable:  a.Writable,
		Signer:    a.Signer,
		Optional:  a.Optional,
		Address:   a.Address,
		PDA:       a.PDA,
		Relations: a.Relations,
	})
}

func (a *InstructionAccount) UnmarshalJSON(data []byte) error {
	var probe struct {
		Name     string            `json:"name"`
		Accounts []json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Accounts != nil {
		group := make([]InstructionAccount, len(probe.Accounts))
		for i, raw := range probe.Accounts {
			if err := json.Unmarshal(raw, &group[i]); err != nil {
				return fmt.Errorf("account group %q member %d: %w", probe.Name, i, err)
			}
		}
		*a = InstructionAccount{Name: probe.Name, Accounts: group}
		return nil
	}
	var w instructionAccountWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = InstructionAccount{
		Name:      w.Name,
		Docs:      w.Docs,
		Writable:  w.Writable,
		Signer:    w.Signer,
		Optional:  w.Optional,
		Address:   w.Address,
		PDA:       w.PDA,
		Relations: w.Relations,
	}
	return nil
}

// IsComposite 判断是否为组合账户组。
func (a *InstructionAccount) IsComposite() bool {
	return len(a.Accounts) > 0
}

// PdaSpec PDA 派生说明：种子列表与可选的派生程序。
type PdaSpec struct {
	Seeds   []Seed `json:"seeds"`
	Program *Seed  `json:"program,omitempty"`
}

// Seed PDA 种子，kind 取 "const" / "arg" / "account"。
type Seed struct {
	Kind    string `json:"kind"`
	Value   Bytes  `json:"value,omitempty"`   // const：字面字节
	Path    string `json:"path,omitempty"`    // arg/account：引用路径
	Account string `json:"account,omitempty"` // account：可选的账户类型名
}

// Account 顶层账户条目。字段布局存于同名 types 条目中，
// size 为可选的账户空间提示，原样透传。
type Account struct {
	Name          string `json:"name"`
	Discriminator Bytes  `json:"discriminator"`
	Size          uint64 `json:"size,omitempty"`
}

// Event 顶层事件条目。字段布局存于同名 types 条目中。
type Event struct {
	Name          string `json:"name"`
	Discriminator Bytes  `json:"discriminator"`
}

// ErrorCode 程序自定义错误码。
type ErrorCode struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg,omitempty"`
}

// Constant 程序常量，value 为源码文本形态。
type Constant struct {
	Name  string   `json:"name"`
	Docs  []string `json:"docs,omitempty"`
	Type  TypeRef  `json:"type"`
	Value string   `json:"value"`
}

// TypeByName 返回 types 段中的同名定义，未找到时返回 nil。
// 当前代账户/事件的字段布局即通过此查询取得。
func (i *Idl) TypeByName(name string) *TypeDef {
	for idx := range i.Types {
		if i.Types[idx].Name == name {
			return &i.Types[idx]
		}
	}
	return nil
}

// AccountByName 返回顶层账户条目，未找到时返回 nil。
func (i *Idl) AccountByName(name string) *Account {
	for idx := range i.Accounts {
		if i.Accounts[idx].Name == name {
			return &i.Accounts[idx]
		}
	}
	return nil
}

// Document 解析结果：代际标记加上对应代的文档体，两者恰有一个非 nil。
type Document struct {
	Generation Generation
	Current    *Idl
	Legacy     *LegacyIdl
}

// ProgramName 返回文档声明的程序名。
func (d *Document) ProgramName() string {
	switch d.Generation {
	case GenerationCurrent:
		return d.Current.Metadata.Name
	case GenerationLegacy:
		return d.Legacy.Name
	}
	return ""
}

// ProgramVersion 返回文档声明的程序版本。
func (d *Document) ProgramVersion() string {
	switch d.Generation {
	case GenerationCurrent:
		return d.Current.Metadata.Version
	case GenerationLegacy:
		return d.Legacy.Version
	}
	return ""
}
