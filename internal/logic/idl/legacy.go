package idl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LegacyTypeKind 旧代类型引用的节点种类。
type LegacyTypeKind string

const (
	LegacyKindPrimitive       LegacyTypeKind = "primitive"
	LegacyKindOption          LegacyTypeKind = "option"
	LegacyKindCOption         LegacyTypeKind = "coption"
	LegacyKindVec             LegacyTypeKind = "vec"
	LegacyKindArray           LegacyTypeKind = "array"
	LegacyKindDefined         LegacyTypeKind = "defined"
	LegacyKindGeneric         LegacyTypeKind = "generic"
	LegacyKindGenericLenArray LegacyTypeKind = "genericLenArray"
	LegacyKindDefinedWithArgs LegacyTypeKind = "definedWithTypeArgs"
	LegacyKindTuple           LegacyTypeKind = "tuple"
)

// 旧代原语集合：publicKey 取代当前代的 pubkey，其余同名。
var legacyPrimitives = map[string]struct{}{
	"bool": {}, "u8": {}, "i8": {}, "u16": {}, "i16": {},
	"u32": {}, "i32": {}, "f32": {}, "u64": {}, "i64": {}, "f64": {},
	"u128": {}, "i128": {}, "u256": {}, "i256": {},
	"bytes": {}, "string": {}, "publicKey": {},
}

// IsLegacyPrimitive 判断 name 是否为旧代原语类型名。
func IsLegacyPrimitive(name string) bool {
	_, ok := legacyPrimitives[name]
	return ok
}

// LegacyTypeRef 旧代类型引用。Kind 决定有效字段：
// Primitive 原语名；Elem 为 option/coption/vec/array/genericLenArray 的元素；
// ArrayLen 为 array 固定长度；LenGeneric 为 genericLenArray 的长度参数名；
// Defined 为目标类型名；Args 为 definedWithTypeArgs 的实参；
// Generic 为泛型参数名；Tuple 为元组元素。
type LegacyTypeRef struct {
	Kind       LegacyTypeKind
	Primitive  string
	Elem       *LegacyTypeRef
	ArrayLen   int
	LenGeneric string
	Defined    string
	Args       []LegacyDefinedArg
	Generic    string
	Tuple      []LegacyTypeRef
}

// LegacyDefinedArg definedWithTypeArgs 的单个实参，三种形态互斥：
// Type（类型实参）、Value（常量文本）、Generic（转发外层泛型参数）。
type LegacyDefinedArg struct {
	Type    *LegacyTypeRef
	Value   string
	Generic string
}

func (a LegacyDefinedArg) MarshalJSON() ([]byte, error) {
	switch {
	case a.Type != nil:
		return json.Marshal(struct {
			Type *LegacyTypeRef `json:"type"`
		}{a.Type})
	case a.Value != "":
		return json.Marshal(struct {
			Value string `json:"value"`
		}{a.Value})
	default:
		return json.Marshal(struct {
			Generic string `json:"generic"`
		}{a.Generic})
	}
}

func (a *LegacyDefinedArg) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("defined type arg must be an object: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("defined type arg must carry exactly one key, got %d", len(m))
	}
	for key, raw := range m {
		switch key {
		case "type":
			elem := new(LegacyTypeRef)
			if err := json.Unmarshal(raw, elem); err != nil {
				return err
			}
			*a = LegacyDefinedArg{Type: elem}
		case "value":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			*a = LegacyDefinedArg{Value: v}
		case "generic":
			var g string
			if err := json.Unmarshal(raw, &g); err != nil {
				return err
			}
			*a = LegacyDefinedArg{Generic: g}
		default:
			return fmt.Errorf("unknown defined type arg key %q", key)
		}
	}
	return nil
}

func (t LegacyTypeRef) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case LegacyKindPrimitive:
		return json.Marshal(t.Primitive)
	case LegacyKindOption:
		return json.Marshal(struct {
			Option *LegacyTypeRef `json:"option"`
		}{t.Elem})
	case LegacyKindCOption:
		return json.Marshal(struct {
			COption *LegacyTypeRef `json:"coption"`
		}{t.Elem})
	case LegacyKindVec:
		return json.Marshal(struct {
			Vec *LegacyTypeRef `json:"vec"`
		}{t.Elem})
	case LegacyKindArray:
		return json.Marshal(struct {
			Array [2]interface{} `json:"array"`
		}{[2]interface{}{t.Elem, t.ArrayLen}})
	case LegacyKindGenericLenArray:
		return json.Marshal(struct {
			GenericLenArray [2]interface{} `json:"genericLenArray"`
		}{[2]interface{}{t.Elem, t.LenGeneric}})
	case LegacyKindDefined:
		return json.Marshal(struct {
			Defined string `json:"defined"`
		}{t.Defined})
	case LegacyKindDefinedWithArgs:
		return json.Marshal(struct {
			DefinedWithTypeArgs struct {
				Name string             `json:"name"`
				Args []LegacyDefinedArg `json:"args"`
			} `json:"definedWithTypeArgs"`
		}{struct {
			Name string             `json:"name"`
			Args []LegacyDefinedArg `json:"args"`
		}{t.Defined, t.Args}})
	case LegacyKindGeneric:
		return json.Marshal(struct {
			Generic string `json:"generic"`
		}{t.Generic})
	case LegacyKindTuple:
		return json.Marshal(struct {
			Tuple []LegacyTypeRef `json:"tuple"`
		}{t.Tuple})
	}
	return nil, fmt.Errorf("cannot marshal legacy type ref with kind %q", t.Kind)
}

func (t *LegacyTypeRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty type ref")
	}

	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		if !IsLegacyPrimitive(name) {
			return &TypeKindError{Kind: name, Legacy: true}
		}
		*t = LegacyTypeRef{Kind: LegacyKindPrimitive, Primitive: name}
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("type ref must be a string or an object: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("type ref object must carry exactly one key, got %d", len(m))
	}

	for key, raw := range m {
		switch key {
		case "option", "coption", "vec":
			elem := new(LegacyTypeRef)
			if err := json.Unmarshal(raw, elem); err != nil {
				return fmt.Errorf("%s element: %w", key, err)
			}
			kind := LegacyKindOption
			switch key {
			case "coption":
				kind = LegacyKindCOption
			case "vec":
				kind = LegacyKindVec
			}
			*t = LegacyTypeRef{Kind: kind, Elem: elem}
		case "array":
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("array must be a [element, length] pair")
			}
			elem := new(LegacyTypeRef)
			if err := json.Unmarshal(pair[0], elem); err != nil {
				return fmt.Errorf("array element: %w", err)
			}
			var n int
			if err := json.Unmarshal(pair[1], &n); err != nil || n < 0 {
				return fmt.Errorf("array length must be a non-negative number")
			}
			*t = LegacyTypeRef{Kind: LegacyKindArray, Elem: elem, ArrayLen: n}
		case "genericLenArray":
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("genericLenArray must be a [element, generic] pair")
			}
			elem := new(LegacyTypeRef)
			if err := json.Unmarshal(pair[0], elem); err != nil {
				return fmt.Errorf("genericLenArray element: %w", err)
			}
			var g string
			if err := json.Unmarshal(pair[1], &g); err != nil || g == "" {
				return fmt.Errorf("genericLenArray length must be a generic name")
			}
			*t = LegacyTypeRef{Kind: LegacyKindGenericLenArray, Elem: elem, LenGeneric: g}
		case "defined":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil || name == "" {
				return fmt.Errorf("defined ref must be a non-empty type name")
			}
			*t = LegacyTypeRef{Kind: LegacyKindDefined, Defined: name}
		case "definedWithTypeArgs":
			var obj struct {
				Name string             `json:"name"`
				Args []LegacyDefinedArg `json:"args"`
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				return fmt.Errorf("definedWithTypeArgs: %w", err)
			}
			if obj.Name == "" {
				return fmt.Errorf("definedWithTypeArgs requires a non-empty name")
			}
			*t = LegacyTypeRef{Kind: LegacyKindDefinedWithArgs, Defined: obj.Name, Args: obj.Args}
		case "generic":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return fmt.Errorf("generic ref: %w", err)
			}
			*t = LegacyTypeRef{Kind: LegacyKindGeneric, Generic: name}
		case "tuple":
			var elems []LegacyTypeRef
			if err := json.Unmarshal(raw, &elems); err != nil {
				return fmt.Errorf("tuple elements: %w", err)
			}
			*t = LegacyTypeRef{Kind: LegacyKindTuple, Tuple: elems}
		default:
			return &TypeKindError{Kind: key, Legacy: true}
		}
	}
	return nil
}

// LegacyIdl 旧代 IDL 文档。字段顺序即序列化顺序；
// Metadata 与 State 以原始 JSON 保留，保证重序列化不丢信息。
type LegacyIdl struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Docs         []string            `json:"docs,omitempty"`
	Constants    []LegacyConstant    `json:"constants,omitempty"`
	Instructions []LegacyInstruction `json:"instructions"`
	State        json.RawMessage     `json:"state,omitempty"`
	Accounts     []LegacyTypeDef     `json:"accounts,omitempty"`
	Types        []LegacyTypeDef     `json:"types,omitempty"`
	Events       []LegacyEvent       `json:"events,omitempty"`
	Errors       []ErrorCode         `json:"errors,omitempty"`
	Metadata     json.RawMessage     `json:"metadata,omitempty"`
}

// Address 提取 metadata.address（旧代的部署地址挂在自由形态的 metadata 下）。
func (l *LegacyIdl) Address() string {
	if len(l.Metadata) == 0 {
		return ""
	}
	var probe struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(l.Metadata, &probe); err != nil {
		return ""
	}
	return probe.Address
}

// LegacyInstruction 旧代指令：无判别码，名字为 camelCase。
type LegacyInstruction struct {
	Name     string                     `json:"name"`
	Docs     []string                   `json:"docs,omitempty"`
	Accounts []LegacyInstructionAccount `json:"accounts"`
	Args     []LegacyField              `json:"args"`
	Returns  *LegacyTypeRef             `json:"returns,omitempty"`
}

// LegacyInstructionAccount 旧代指令账户项，Accounts 非空时为组合账户组。
// 晚期旧代文档中出现的 pda/relations 键不纳入模型（迁移时按缺失处理）。
type LegacyInstructionAccount struct {
	Name     string
	Docs     []string
	IsMut    bool
	IsSigner bool
	Optional bool
	Accounts []LegacyInstructionAccount
}

type legacyAccountWire struct {
	Name     string   `json:"name"`
	Docs     []string `json:"docs,omitempty"`
	IsMut    bool     `json:"isMut"`
	IsSigner bool     `json:"isSigner"`
	Optional bool     `json:"isOptional,omitempty"`
}

func (a LegacyInstructionAccount) MarshalJSON() ([]byte, error) {
	if len(a.Accounts) > 0 {
		return json.Marshal(struct {
			Name     string                     `json:"name"`
			Accounts []LegacyInstructionAccount `json:"accounts"`
		}{a.Name, a.Accounts})
	}
	return json.Marshal(legacyAccountWire{
		Name:     a.Name,
		Docs:     a.Docs,
		IsMut:    a.IsMut,
		IsSigner: a.IsSigner,
		Optional: a.Optional,
	})
}

func (a *LegacyInstructionAccount) UnmarshalJSON(data []byte) error {
	var probe struct {
		Name     string            `json:"name"`
		Accounts []json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Accounts != nil {
		group := make([]LegacyInstructionAccount, len(probe.Accounts))
		for i, raw := range probe.Accounts {
			if err := json.Unmarshal(raw, &group[i]); err != nil {
				return fmt.Errorf("account group %q member %d: %w", probe.Name, i, err)
			}
		}
		*a = LegacyInstructionAccount{Name: probe.Name, Accounts: group}
		return nil
	}
	var w legacyAccountWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = LegacyInstructionAccount{
		Name:     w.Name,
		Docs:     w.Docs,
		IsMut:    w.IsMut,
		IsSigner: w.IsSigner,
		Optional: w.Optional,
	}
	return nil
}

// LegacyField 旧代命名字段。
type LegacyField struct {
	Name string        `json:"name"`
	Docs []string      `json:"docs,omitempty"`
	Type LegacyTypeRef `json:"type"`
}

// LegacyFieldList 旧代字段集，命名形态与元组形态互斥。
type LegacyFieldList struct {
	Named []LegacyField
	Tuple []LegacyTypeRef
}

func (f LegacyFieldList) MarshalJSON() ([]byte, error) {
	if f.Tuple != nil {
		return json.Marshal(f.Tuple)
	}
	if f.Named == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Named)
}

func (f *LegacyFieldList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fields must be an array: %w", err)
	}
	if len(raw) == 0 {
		*f = LegacyFieldList{Named: []LegacyField{}}
		return nil
	}
	if head := bytes.TrimSpace(raw[0]); len(head) > 0 && head[0] == '{' {
		var named []LegacyField
		if err := json.Unmarshal(data, &named); err != nil {
			return err
		}
		*f = LegacyFieldList{Named: named}
		return nil
	}
	var tuple []LegacyTypeRef
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	*f = LegacyFieldList{Tuple: tuple}
	return nil
}

// LegacyEnumVariant 旧代枚举变体。
type LegacyEnumVariant struct {
	Name   string           `json:"name"`
	Fields *LegacyFieldList `json:"fields,omitempty"`
}

// LegacyTypeDefTy 旧代类型定义体，kind 仅有 struct / enum。
type LegacyTypeDefTy struct {
	Kind     string              `json:"kind"`
	Fields   *LegacyFieldList    `json:"fields,omitempty"`
	Variants []LegacyEnumVariant `json:"variants,omitempty"`
}

// LegacyTypeDef 旧代具名类型定义；账户条目复用此结构（字段内联）。
// Generics 为旧代的纯名字形参列表。
type LegacyTypeDef struct {
	Name     string          `json:"name"`
	Docs     []string        `json:"docs,omitempty"`
	Generics []string        `json:"generics,omitempty"`
	Type     LegacyTypeDefTy `json:"type"`
}

// LegacyEvent 旧代事件：字段内联并带 index 标记。
type LegacyEvent struct {
	Name   string             `json:"name"`
	Fields []LegacyEventField `json:"fields"`
}

// LegacyEventField 旧代事件字段，Index 标记已废弃但需透传。
type LegacyEventField struct {
	Name  string        `json:"name"`
	Type  LegacyTypeRef `json:"type"`
	Index bool          `json:"index"`
}

// LegacyConstant 旧代常量。
type LegacyConstant struct {
	Name  string        `json:"name"`
	Type  LegacyTypeRef `json:"type"`
	Value string        `json:"value"`
}
