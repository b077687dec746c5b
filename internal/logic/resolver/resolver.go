package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"idl-kit-sol/internal/logic/idl"
)

// Kind 展开后类型树的节点种类。
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindOption    Kind = "option"
	KindVec       Kind = "vec"
	KindArray     Kind = "array"
	KindTuple     Kind = "tuple"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	// KindOpaque 无布局可展开的叶子：没有同名类型定义的账户名，
	// 或声明上下文中的泛型形参占位。
	KindOpaque Kind = "opaque"
)

// Type 完全展开后的类型树：defined 引用均已替换为定义体，
// 泛型要么落定要么成为占位叶子。
type Type struct {
	Kind      Kind
	Primitive string    // primitive：原语名
	Elem      *Type     // option/vec/array：元素类型
	Len       int       // array：长度（泛型长度未落定时为 0）
	Name      string    // struct/enum/opaque：来源类型名或占位名
	Fields    []Field   // struct/variant：命名字段
	Tuple     []Type    // struct/variant 元组字段或 tuple 元素
	Variants  []Variant // enum
}

// Field 展开后的命名字段。
type Field struct {
	Name string
	Type Type
}

// Variant 展开后的枚举变体。
type Variant struct {
	Name   string
	Fields []Field
	Tuple  []Type
}

// UnresolvedError 引用的名字在 types/accounts 命名空间内均无定义。
type UnresolvedError struct {
	Name string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved type reference %q", e.Name)
}

// CycleError 类型定义之间存在引用环，Chain 为环上的名字序列。
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic type definition: %s", strings.Join(e.Chain, " -> "))
}

// GenericError 泛型参数未落定或与声明不匹配。
type GenericError struct {
	Name   string
	Reason string
}

func (e *GenericError) Error() string {
	return fmt.Sprintf("generic parameter %q %s", e.Name, e.Reason)
}

// Resolver 在单个当前代文档的命名空间（types 优先，accounts 兜底）内解析类型引用。
type Resolver struct {
	defs     map[string]*idl.TypeDef
	accounts map[string]struct{}
}

// New 建立文档的类型名索引。重名时保留先出现的定义（重名本身由校验器上报）。
func New(doc *idl.Idl) *Resolver {
	r := &Resolver{
		defs:     make(map[string]*idl.TypeDef, len(doc.Types)),
		accounts: make(map[string]struct{}, len(doc.Accounts)),
	}
	for i := range doc.Types {
		if _, ok := r.defs[doc.Types[i].Name]; !ok {
			r.defs[doc.Types[i].Name] = &doc.Types[i]
		}
	}
	for i := range doc.Accounts {
		r.accounts[doc.Accounts[i].Name] = struct{}{}
	}
	return r
}

// binding 单个泛型形参的绑定：类型实参或常量实参，占位绑定用于声明上下文。
type binding struct {
	typ         *Type
	value       string
	placeholder bool
}

type bindings map[string]binding

// walk 一次展开的递归状态：访问中的定义名集合与进入顺序。
type walk struct {
	visiting map[string]bool
	chain    []string
}

func newWalk() *walk {
	return &walk{visiting: make(map[string]bool)}
}

func (w *walk) enter(name string) error {
	if w.visiting[name] {
		// 从首次出现处截取，环路径信息完整且确定
		start := 0
		for i, n := range w.chain {
			if n == name {
				start = i
				break
			}
		}
		chain := append(append([]string{}, w.chain[start:]...), name)
		return &CycleError{Chain: chain}
	}
	w.visiting[name] = true
	w.chain = append(w.chain, name)
	return nil
}

func (w *walk) leave(name string) {
	delete(w.visiting, name)
	w.chain = w.chain[:len(w.chain)-1]
}

// Resolve 将 ref 展开为完整类型树。用于指令参数、返回值、常量等
// 严格上下文：未代入的泛型参数在此为错误。
func (r *Resolver) Resolve(ref idl.TypeRef) (*Type, error) {
	return r.expand(ref, nil, newWalk())
}

// CheckDef 校验类型定义体可展开：声明的形参绑定为占位后展开，
// 自引用与互引用环在此被发现。
func (r *Resolver) CheckDef(def *idl.TypeDef) error {
	binds := make(bindings, len(def.Generics))
	for _, p := range def.Generics {
		switch p.Kind {
		case "const":
			binds[p.Name] = binding{placeholder: true}
		default:
			binds[p.Name] = binding{typ: &Type{Kind: KindOpaque, Name: p.Name}, placeholder: true}
		}
	}
	w := newWalk()
	if err := w.enter(def.Name); err != nil {
		return err
	}
	defer w.leave(def.Name)
	_, err := r.expandBody(def, binds, w)
	return err
}

// expand 展开一个类型引用。binds 为当前作用域的泛型绑定。
func (r *Resolver) expand(ref idl.TypeRef, binds bindings, w *walk) (*Type, error) {
	switch ref.Kind {
	case idl.TypeKindPrimitive:
		return &Type{Kind: KindPrimitive, Primitive: ref.Primitive}, nil

	case idl.TypeKindOption, idl.TypeKindVec:
		elem, err := r.expand(*ref.Elem, binds, w)
		if err != nil {
			return nil, err
		}
		kind := KindOption
		if ref.Kind == idl.TypeKindVec {
			kind = KindVec
		}
		return &Type{Kind: kind, Elem: elem}, nil

	case idl.TypeKindArray:
		elem, err := r.expand(*ref.Elem, binds, w)
		if err != nil {
			return nil, err
		}
		length, err := r.arrayLen(ref.ArrayLen, binds)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindArray, Elem: elem, Len: length}, nil

	case idl.TypeKindTuple:
		out := &Type{Kind: KindTuple, Tuple: make([]Type, 0, len(ref.Tuple))}
		for _, el := range ref.Tuple {
			t, err := r.expand(el, binds, w)
			if err != nil {
				return nil, err
			}
			out.Tuple = append(out.Tuple, *t)
		}
		return out, nil

	case idl.TypeKindGeneric:
		b, ok := binds[ref.Generic]
		if !ok {
			return nil, &GenericError{Name: ref.Generic, Reason: "is not substituted in this context"}
		}
		if b.typ == nil {
			return nil, &GenericError{Name: ref.Generic, Reason: "is a const parameter used in type position"}
		}
		return b.typ, nil

	case idl.TypeKindDefined:
		return r.expandDefined(ref.Defined, binds, w)
	}
	return nil, fmt.Errorf("cannot expand type ref with kind %q", ref.Kind)
}

// expandDefined 解析具名引用：types 段优先；仅有账户条目而无布局定义时
// 退化为不透明叶子；两者皆无则为未解析引用。
func (r *Resolver) expandDefined(ref *idl.DefinedRef, binds bindings, w *walk) (*Type, error) {
	def, ok := r.defs[ref.Name]
	if !ok {
		if _, isAccount := r.accounts[ref.Name]; isAccount {
			return &Type{Kind: KindOpaque, Name: ref.Name}, nil
		}
		return nil, &UnresolvedError{Name: ref.Name}
	}

	if len(ref.Generics) != len(def.Generics) {
		return nil, &GenericError{
			Name:   def.Name,
			Reason: fmt.Sprintf("requires %d type arguments, got %d", len(def.Generics), len(ref.Generics)),
		}
	}

	// 实参在外层作用域展开后再绑定到形参
	inner := make(bindings, len(def.Generics))
	for i, param := range def.Generics {
		arg := ref.Generics[i]
		switch param.Kind {
		case "const":
			if arg.Kind != "const" {
				return nil, &GenericError{Name: param.Name, Reason: "expects a const argument"}
			}
			inner[param.Name] = binding{value: arg.Value}
		default:
			// 旧代迁移而来的形参不区分 kind，常量实参按值绑定，误用在使用点报错
			if arg.Kind == "const" {
				inner[param.Name] = binding{value: arg.Value}
				continue
			}
			if arg.Type == nil {
				return nil, &GenericError{Name: param.Name, Reason: "expects a type argument"}
			}
			t, err := r.expand(*arg.Type, binds, w)
			if err != nil {
				return nil, err
			}
			inner[param.Name] = binding{typ: t}
		}
	}

	if err := w.enter(def.Name); err != nil {
		return nil, err
	}
	defer w.leave(def.Name)
	return r.expandBody(def, inner, w)
}

// expandBody 展开类型定义体（struct / enum / 别名）。
func (r *Resolver) expandBody(def *idl.TypeDef, binds bindings, w *walk) (*Type, error) {
	switch def.Type.Kind {
	case "struct":
		out := &Type{Kind: KindStruct, Name: def.Name}
		if def.Type.Fields != nil {
			var err error
			out.Fields, out.Tuple, err = r.expandFields(def.Type.Fields, binds, w)
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case "enum":
		out := &Type{Kind: KindEnum, Name: def.Name, Variants: make([]Variant, 0, len(def.Type.Variants))}
		for _, v := range def.Type.Variants {
			variant := Variant{Name: v.Name}
			if v.Fields != nil {
				var err error
				variant.Fields, variant.Tuple, err = r.expandFields(v.Fields, binds, w)
				if err != nil {
					return nil, err
				}
			}
			out.Variants = append(out.Variants, variant)
		}
		return out, nil

	case "type":
		if def.Type.Alias == nil {
			return nil, fmt.Errorf("type alias %q has no target", def.Name)
		}
		return r.expand(*def.Type.Alias, binds, w)
	}
	return nil, fmt.Errorf("unknown type definition kind %q in %q", def.Type.Kind, def.Name)
}

func (r *Resolver) expandFields(fields *idl.FieldList, binds bindings, w *walk) ([]Field, []Type, error) {
	if fields.Tuple != nil {
		out := make([]Type, 0, len(fields.Tuple))
		for _, el := range fields.Tuple {
			t, err := r.expand(el, binds, w)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, *t)
		}
		return nil, out, nil
	}
	out := make([]Field, 0, len(fields.Named))
	for _, f := range fields.Named {
		t, err := r.expand(f.Type, binds, w)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, Field{Name: f.Name, Type: *t})
	}
	return out, nil, nil
}

// arrayLen 解析数组长度：字面量直接返回；泛型长度须绑定到 const 实参，
// 常量文本非数值时长度记 0（源码级常量表达式仅透传）。
func (r *Resolver) arrayLen(l idl.ArrayLen, binds bindings) (int, error) {
	if l.Generic == "" {
		return l.Value, nil
	}
	b, ok := binds[l.Generic]
	if !ok {
		return 0, &GenericError{Name: l.Generic, Reason: "is not substituted in this context"}
	}
	// 声明上下文的占位绑定不携带 kind 信息，长度位按 0 展开
	if b.placeholder {
		return 0, nil
	}
	if b.typ != nil {
		return 0, &GenericError{Name: l.Generic, Reason: "is a type parameter used as array length"}
	}
	if n, err := strconv.Atoi(b.value); err == nil {
		return n, nil
	}
	return 0, nil
}
