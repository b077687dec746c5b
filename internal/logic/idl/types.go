package idl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeKind 类型引用的节点种类。
type TypeKind string

const (
	TypeKindPrimitive TypeKind = "primitive"
	TypeKindOption    TypeKind = "option"
	TypeKindVec       TypeKind = "vec"
	TypeKindArray     TypeKind = "array"
	TypeKindDefined   TypeKind = "defined"
	TypeKindGeneric   TypeKind = "generic"
	TypeKindTuple     TypeKind = "tuple"
)

// 当前代 IDL 的原语类型集合。
var currentPrimitives = map[string]struct{}{
	"bool": {}, "u8": {}, "i8": {}, "u16": {}, "i16": {},
	"u32": {}, "i32": {}, "f32": {}, "u64": {}, "i64": {}, "f64": {},
	"u128": {}, "i128": {}, "u256": {}, "i256": {},
	"bytes": {}, "string": {}, "pubkey": {},
}

// IsPrimitive 判断 name 是否为当前代原语类型名。
func IsPrimitive(name string) bool {
	_, ok := currentPrimitives[name]
	return ok
}

// TypeRef 当前代 IDL 的类型引用（递归联合结构）。
// Kind 决定有效字段：Primitive（原语名）、Elem（option/vec/array 的元素）、
// ArrayLen（array 长度）、Defined（具名类型引用）、Generic（泛型参数名）、
// Tuple（元组元素列表）。
type TypeRef struct {
	Kind      TypeKind
	Primitive string
	Elem      *TypeRef
	ArrayLen  ArrayLen
	Defined   *DefinedRef
	Generic   string
	Tuple     []TypeRef
}

// Prim 构造原语类型引用（测试与内部构造用）。
func Prim(name string) TypeRef {
	return TypeRef{Kind: TypeKindPrimitive, Primitive: name}
}

func (t TypeRef) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TypeKindPrimitive:
		return json.Marshal(t.Primitive)
	case TypeKindOption:
		return json.Marshal(struct {
			Option *TypeRef `json:"option"`
		}{t.Elem})
	case TypeKindVec:
		return json.Marshal(struct {
			Vec *TypeRef `json:"vec"`
		}{t.Elem})
	case TypeKindArray:
		return json.Marshal(struct {
			Array [2]interface{} `json:"array"`
		}{[2]interface{}{t.Elem, t.ArrayLen}})
	case TypeKindDefined:
		return json.Marshal(struct {
			Defined *DefinedRef `json:"defined"`
		}{t.Defined})
	case TypeKindGeneric:
		return json.Marshal(struct {
			Generic string `json:"generic"`
		}{t.Generic})
	case TypeKindTuple:
		return json.Marshal(struct {
			Tuple []TypeRef `json:"tuple"`
		}{t.Tuple})
	}
	return nil, fmt.Errorf("cannot marshal type ref with kind %q", t.Kind)
}

func (t *TypeRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty type ref")
	}

	// 1. 字符串形态 → 原语类型
	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		if !IsPrimitive(name) {
			return &TypeKindError{Kind: name}
		}
		*t = TypeRef{Kind: TypeKindPrimitive, Primitive: name}
		return nil
	}

	// 2. 对象形态 → 恰好一个键标记复合类型
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("type ref must be a string or an object: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("type ref object must carry exactly one key, got %d", len(m))
	}

	for key, raw := range m {
		switch key {
		case "option", "vec":
			elem := new(TypeRef)
			if err := json.Unmarshal(raw, elem); err != nil {
				return fmt.Errorf("%s element: %w", key, err)
			}
			kind := TypeKindOption
			if key == "vec" {
				kind = TypeKindVec
			}
			*t = TypeRef{Kind: kind, Elem: elem}
		case "array":
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("array must be a [element, length] pair")
			}
			elem := new(TypeRef)
			if err := json.Unmarshal(pair[0], elem); err != nil {
				return fmt.Errorf("array element: %w", err)
			}
			var length ArrayLen
			if err := json.Unmarshal(pair[1], &length); err != nil {
				return fmt.Errorf("array length: %w", err)
			}
			*t = TypeRef{Kind: TypeKindArray, Elem: elem, ArrayLen: length}
		case "defined":
			var d DefinedRef
			if err := json.Unmarshal(raw, &d); err != nil {
				return fmt.Errorf("defined ref: %w", err)
			}
			if d.Name == "" {
				return fmt.Errorf("defined ref requires a non-empty name")
			}
			*t = TypeRef{Kind: TypeKindDefined, Defined: &d}
		case "generic":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return fmt.Errorf("generic ref: %w", err)
			}
			*t = TypeRef{Kind: TypeKindGeneric, Generic: name}
		case "tuple":
			var elems []TypeRef
			if err := json.Unmarshal(raw, &elems); err != nil {
				return fmt.Errorf("tuple elements: %w", err)
			}
			*t = TypeRef{Kind: TypeKindTuple, Tuple: elems}
		default:
			return &TypeKindError{Kind: key}
		}
	}
	return nil
}

// ArrayLen 数组长度：数值或 {"generic": 参数名} 两种形态。
type ArrayLen struct {
	Value   int
	Generic string
}

func (l ArrayLen) MarshalJSON() ([]byte, error) {
	if l.Generic != "" {
		return json.Marshal(struct {
			Generic string `json:"generic"`
		}{l.Generic})
	}
	return json.Marshal(l.Value)
}

func (l *ArrayLen) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Generic string `json:"generic"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if obj.Generic == "" {
			return fmt.Errorf("array length object requires a generic name")
		}
		*l = ArrayLen{Generic: obj.Generic}
		return nil
	}
	var n int
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("array length must be a number or a generic ref: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("array length must be non-negative, got %d", n)
	}
	*l = ArrayLen{Value: n}
	return nil
}

// DefinedRef 指向文档内具名类型的引用，可携带泛型实参。
type DefinedRef struct {
	Name     string       `json:"name"`
	Generics []GenericArg `json:"generics,omitempty"`
}

// GenericArg 泛型实参：kind == "type" 时携带类型，kind == "const" 时携带常量文本。
type GenericArg struct {
	Kind  string   `json:"kind"`
	Type  *TypeRef `json:"type,omitempty"`
	Value string   `json:"value,omitempty"`
}

// GenericParam 类型定义上的泛型形参声明。
type GenericParam struct {
	Kind string `json:"kind"`           // "type" 或 "const"
	Name string `json:"name"`           // 参数名，如 T / N
	Type string `json:"type,omitempty"` // const 参数的原语类型
}

// Field 命名字段。
type Field struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
	Type TypeRef  `json:"type"`
}

// FieldList 结构体/枚举变体的字段集，命名形态与元组形态互斥。
type FieldList struct {
	Named []Field
	Tuple []TypeRef
}

func (f FieldList) MarshalJSON() ([]byte, error) {
	if f.Tuple != nil {
		return json.Marshal(f.Tuple)
	}
	if f.Named == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Named)
}

func (f *FieldList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fields must be an array: %w", err)
	}
	if len(raw) == 0 {
		*f = FieldList{Named: []Field{}}
		return nil
	}
	// 首元素为对象 → 命名字段；否则按元组字段解析
	if head := bytes.TrimSpace(raw[0]); len(head) > 0 && head[0] == '{' {
		var named []Field
		if err := json.Unmarshal(data, &named); err != nil {
			return err
		}
		*f = FieldList{Named: named}
		return nil
	}
	var tuple []TypeRef
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	*f = FieldList{Tuple: tuple}
	return nil
}

// EnumVariant 枚举变体，字段集可省略（单位变体）。
type EnumVariant struct {
	Name   string     `json:"name"`
	Fields *FieldList `json:"fields,omitempty"`
}

// TypeDefTy 类型定义体，kind 取 "struct" / "enum" / "type"（别名）。
type TypeDefTy struct {
	Kind     string        `json:"kind"`
	Fields   *FieldList    `json:"fields,omitempty"`
	Variants []EnumVariant `json:"variants,omitempty"`
	Alias    *TypeRef      `json:"alias,omitempty"`
}

// TypeDef 文档 types 段中的一个具名类型定义。
type TypeDef struct {
	Name          string         `json:"name"`
	Docs          []string       `json:"docs,omitempty"`
	Serialization string         `json:"serialization,omitempty"`
	Repr          *Repr          `json:"repr,omitempty"`
	Generics      []GenericParam `json:"generics,omitempty"`
	Type          TypeDefTy      `json:"type"`
}

// Repr 类型的内存布局标记（透传字段，引擎不解释）。
type Repr struct {
	Kind   string `json:"kind"`
	Packed bool   `json:"packed,omitempty"`
	Align  int    `json:"align,omitempty"`
}

// Bytes JSON 形态为数值数组（而非 base64）的字节串，
// 判别码与 PDA 常量种子均用此表示。
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("byte array must be a JSON array of numbers: %w", err)
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d out of range at index %d", v, i)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// Equal 判断两个字节串逐字节相等。
func (b Bytes) Equal(other Bytes) bool {
	return bytes.Equal(b, other)
}
