package converter

import (
	"bytes"
	"errors"
	"fmt"

	"idl-kit-sol/internal/consts"
	"idl-kit-sol/internal/logic/discriminator"
	"idl-kit-sol/internal/logic/idl"
	"idl-kit-sol/internal/logic/resolver"
	"idl-kit-sol/internal/utils"
)

// Options 迁移选项，对应配置文件的 convert 段。
type Options struct {
	// SynthesizeAccountMeta 旧代账户约束缺失 PDA 种子元数据，
	// 开启时按空元数据合成并为受影响指令记录一条提示。
	SynthesizeAccountMeta bool

	// Params 判别码派生参数表，零值时使用当前代固定表。
	Params discriminator.Params
}

// Note 迁移提示：非致命，说明旧代无法表达的信息被如何处理。
type Note struct {
	Kind        string // pda_synthesized / typedef_collision / event_index_dropped
	Instruction string // 关联指令名（可为空）
	Subject     string // 关联对象名（可为空）
	Message     string
}

const (
	NoteKindPDASynthesized   = "pda_synthesized"
	NoteKindTypedefCollision = "typedef_collision"
	NoteKindEventIndexDrop   = "event_index_dropped"
)

// UnmappableError 旧代类型编码在当前代没有等价表示，迁移原子性失败。
type UnmappableError struct {
	Path string // 定位，如 instructions.mint.args.stage
	Desc string
}

func (e *UnmappableError) Error() string {
	return fmt.Sprintf("unmappable legacy type at %s: %s", e.Path, e.Desc)
}

// ErrLegacyState 旧代 state 段属于已废弃的架构分支，不迁移也不静默丢弃。
var ErrLegacyState = errors.New("legacy state section belongs to an abandoned schema branch and cannot be migrated")

// ErrInternalInvariant 产出文档未通过解析器后置校验——转换器自身缺陷而非输入问题。
var ErrInternalInvariant = errors.New("converter internal invariant violated")

// Convert 旧代 → 当前代结构迁移。输入只读；要么完整成功要么原子失败。
// 返回的提示列表说明信息不足处的合成行为，供调用方转达给用户。
func Convert(leg *idl.LegacyIdl, opts Options) (*idl.Idl, []Note, error) {
	if hasLegacyState(leg) {
		return nil, nil, ErrLegacyState
	}

	params := opts.Params
	if params.Prefixes == nil {
		params = discriminator.V0()
	}

	c := &converter{params: params, opts: opts}

	// 1. 元信息：旧代顶层 name/version 降入 metadata，address 自由形态提取
	out := &idl.Idl{
		Address: leg.Address(),
		Metadata: idl.Metadata{
			Name:    leg.Name,
			Version: leg.Version,
			Spec:    consts.SpecV010,
		},
		Docs: cloneStrings(leg.Docs),
	}

	// 2. 指令：名字 snake 化 → 派生判别码 → 账户树与参数重映射
	out.Instructions = make([]idl.Instruction, 0, len(leg.Instructions))
	for i := range leg.Instructions {
		ix, err := c.convertInstruction(&leg.Instructions[i])
		if err != nil {
			return nil, nil, err
		}
		out.Instructions = append(out.Instructions, *ix)
	}

	// 3. 类型定义：先于账户/事件处理，名字冲突时以 types 段为准
	for i := range leg.Types {
		td, err := c.convertTypeDef(&leg.Types[i], "types")
		if err != nil {
			return nil, nil, err
		}
		out.Types = append(out.Types, *td)
	}

	// 4. 账户：派生判别码，内联布局提升为同名类型定义
	for i := range leg.Accounts {
		acc := &leg.Accounts[i]
		disc, err := params.Derive(discriminator.CategoryAccount, acc.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("derive discriminator for account %q: %w", acc.Name, err)
		}
		out.Accounts = append(out.Accounts, idl.Account{Name: acc.Name, Discriminator: disc})

		td, err := c.convertTypeDef(acc, "accounts")
		if err != nil {
			return nil, nil, err
		}
		c.hoistTypeDef(out, td)
	}

	// 5. 事件：派生判别码，字段列表提升为同名结构体（丢弃 index 标记）
	for i := range leg.Events {
		ev := &leg.Events[i]
		disc, err := params.Derive(discriminator.CategoryEvent, ev.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("derive discriminator for event %q: %w", ev.Name, err)
		}
		out.Events = append(out.Events, idl.Event{Name: ev.Name, Discriminator: disc})

		td, indexed, err := c.convertEventTypeDef(ev)
		if err != nil {
			return nil, nil, err
		}
		if indexed {
			c.notes = append(c.notes, Note{
				Kind:    NoteKindEventIndexDrop,
				Subject: ev.Name,
				Message: fmt.Sprintf("event %q carried index flags; the current generation has no field indexing, flags were dropped", ev.Name),
			})
		}
		c.hoistTypeDef(out, td)
	}

	// 6. 错误码与常量：结构拷贝，常量类型走同一张重映射表
	out.Errors = cloneErrors(leg.Errors)
	for i := range leg.Constants {
		con := &leg.Constants[i]
		mapped, err := mapType(con.Type, fmt.Sprintf("constants.%s", con.Name))
		if err != nil {
			return nil, nil, err
		}
		out.Constants = append(out.Constants, idl.Constant{
			Name:  con.Name,
			Type:  mapped,
			Value: con.Value,
		})
	}

	// 7. 解析器后置校验：镜像输入侧既有缺陷的失败留给校验器上报，
	//    其余任何失败都意味着转换器自身破坏了引用结构
	if err := c.postCheck(leg, out); err != nil {
		return nil, nil, err
	}

	return out, c.notes, nil
}

type converter struct {
	params discriminator.Params
	opts   Options
	notes  []Note
}

func (c *converter) convertInstruction(lix *idl.LegacyInstruction) (*idl.Instruction, error) {
	name := utils.ToSnakeCase(lix.Name)
	disc, err := c.params.Derive(discriminator.CategoryInstruction, name)
	if err != nil {
		return nil, fmt.Errorf("derive discriminator for instruction %q: %w", name, err)
	}

	ix := &idl.Instruction{
		Name:          name,
		Docs:          cloneStrings(lix.Docs),
		Discriminator: disc,
		Accounts:      make([]idl.InstructionAccount, 0, len(lix.Accounts)),
		Args:          make([]idl.Field, 0, len(lix.Args)),
	}

	for i := range lix.Accounts {
		ix.Accounts = append(ix.Accounts, convertAccountItem(&lix.Accounts[i]))
	}
	if c.opts.SynthesizeAccountMeta && len(lix.Accounts) > 0 {
		c.notes = append(c.notes, Note{
			Kind:        NoteKindPDASynthesized,
			Instruction: name,
			Message:     fmt.Sprintf("instruction %q: account constraints migrated without PDA seed metadata (not expressible in the legacy schema)", name),
		})
	}

	for i := range lix.Args {
		arg := &lix.Args[i]
		mapped, err := mapType(arg.Type, fmt.Sprintf("instructions.%s.args.%s", lix.Name, arg.Name))
		if err != nil {
			return nil, err
		}
		ix.Args = append(ix.Args, idl.Field{
			Name: utils.ToSnakeCase(arg.Name),
			Docs: cloneStrings(arg.Docs),
			Type: mapped,
		})
	}

	if lix.Returns != nil {
		mapped, err := mapType(*lix.Returns, fmt.Sprintf("instructions.%s.returns", lix.Name))
		if err != nil {
			return nil, err
		}
		ix.Returns = &mapped
	}
	return ix, nil
}

// convertAccountItem 账户项改写：isMut/isSigner/isOptional → writable/signer/optional，
// 组合账户组递归处理；PDA 元数据按空合成（不产生 pda 键）。
func convertAccountItem(la *idl.LegacyInstructionAccount) idl.InstructionAccount {
	out := idl.InstructionAccount{
		Name: utils.ToSnakeCase(la.Name),
		Docs: cloneStrings(la.Docs),
	}
	if len(la.Accounts) > 0 {
		out.Accounts = make([]idl.InstructionAccount, 0, len(la.Accounts))
		for i := range la.Accounts {
			out.Accounts = append(out.Accounts, convertAccountItem(&la.Accounts[i]))
		}
		return out
	}
	out.Writable = la.IsMut
	out.Signer = la.IsSigner
	out.Optional = la.Optional
	return out
}

func (c *converter) convertTypeDef(ltd *idl.LegacyTypeDef, section string) (*idl.TypeDef, error) {
	out := &idl.TypeDef{
		Name: ltd.Name,
		Docs: cloneStrings(ltd.Docs),
	}
	for _, g := range ltd.Generics {
		out.Generics = append(out.Generics, idl.GenericParam{Kind: "type", Name: g})
	}

	path := fmt.Sprintf("%s.%s", section, ltd.Name)
	switch ltd.Type.Kind {
	case "struct":
		out.Type.Kind = "struct"
		if ltd.Type.Fields != nil {
			fl, err := mapFieldList(ltd.Type.Fields, path)
			if err != nil {
				return nil, err
			}
			out.Type.Fields = fl
		}
	case "enum":
		out.Type.Kind = "enum"
		out.Type.Variants = make([]idl.EnumVariant, 0, len(ltd.Type.Variants))
		for _, v := range ltd.Type.Variants {
			variant := idl.EnumVariant{Name: v.Name}
			if v.Fields != nil {
				fl, err := mapFieldList(v.Fields, fmt.Sprintf("%s.%s", path, v.Name))
				if err != nil {
					return nil, err
				}
				variant.Fields = fl
			}
			out.Type.Variants = append(out.Type.Variants, variant)
		}
	default:
		return nil, &UnmappableError{Path: path, Desc: fmt.Sprintf("unknown type definition kind %q", ltd.Type.Kind)}
	}
	return out, nil
}

// convertEventTypeDef 事件字段提升为同名结构体，返回是否存在被丢弃的 index 标记。
func (c *converter) convertEventTypeDef(ev *idl.LegacyEvent) (*idl.TypeDef, bool, error) {
	indexed := false
	fields := make([]idl.Field, 0, len(ev.Fields))
	for _, f := range ev.Fields {
		if f.Index {
			indexed = true
		}
		mapped, err := mapType(f.Type, fmt.Sprintf("events.%s.fields.%s", ev.Name, f.Name))
		if err != nil {
			return nil, false, err
		}
		fields = append(fields, idl.Field{Name: f.Name, Type: mapped})
	}
	return &idl.TypeDef{
		Name: ev.Name,
		Type: idl.TypeDefTy{Kind: "struct", Fields: &idl.FieldList{Named: fields}},
	}, indexed, nil
}

// hoistTypeDef 提升布局定义到 types 段；与既有定义重名时保留既有者并记录提示。
func (c *converter) hoistTypeDef(out *idl.Idl, td *idl.TypeDef) {
	for i := range out.Types {
		if out.Types[i].Name == td.Name {
			c.notes = append(c.notes, Note{
				Kind:    NoteKindTypedefCollision,
				Subject: td.Name,
				Message: fmt.Sprintf("layout for %q already defined in types, the existing definition was kept", td.Name),
			})
			return
		}
	}
	out.Types = append(out.Types, *td)
}

func mapFieldList(lf *idl.LegacyFieldList, path string) (*idl.FieldList, error) {
	if lf.Tuple != nil {
		out := make([]idl.TypeRef, 0, len(lf.Tuple))
		for i, el := range lf.Tuple {
			mapped, err := mapType(el, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, mapped)
		}
		return &idl.FieldList{Tuple: out}, nil
	}
	out := make([]idl.Field, 0, len(lf.Named))
	for _, f := range lf.Named {
		mapped, err := mapType(f.Type, fmt.Sprintf("%s.fields.%s", path, f.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, idl.Field{Name: f.Name, Docs: cloneStrings(f.Docs), Type: mapped})
	}
	return &idl.FieldList{Named: out}, nil
}

// mapType 旧代类型编码 → 当前代，查表重映射。
// publicKey 更名 pubkey；genericLenArray 并入 array 的泛型长度形态；
// definedWithTypeArgs 并入 defined 的泛型实参形态；coption 无等价布局，拒绝。
func mapType(lt idl.LegacyTypeRef, path string) (idl.TypeRef, error) {
	switch lt.Kind {
	case idl.LegacyKindPrimitive:
		if lt.Primitive == "publicKey" {
			return idl.Prim("pubkey"), nil
		}
		return idl.Prim(lt.Primitive), nil

	case idl.LegacyKindOption, idl.LegacyKindVec:
		elem, err := mapType(*lt.Elem, path)
		if err != nil {
			return idl.TypeRef{}, err
		}
		kind := idl.TypeKindOption
		if lt.Kind == idl.LegacyKindVec {
			kind = idl.TypeKindVec
		}
		return idl.TypeRef{Kind: kind, Elem: &elem}, nil

	case idl.LegacyKindCOption:
		return idl.TypeRef{}, &UnmappableError{
			Path: path,
			Desc: "coption has a different byte layout than option and no current-generation equivalent",
		}

	case idl.LegacyKindArray:
		elem, err := mapType(*lt.Elem, path)
		if err != nil {
			return idl.TypeRef{}, err
		}
		return idl.TypeRef{Kind: idl.TypeKindArray, Elem: &elem, ArrayLen: idl.ArrayLen{Value: lt.ArrayLen}}, nil

	case idl.LegacyKindGenericLenArray:
		elem, err := mapType(*lt.Elem, path)
		if err != nil {
			return idl.TypeRef{}, err
		}
		return idl.TypeRef{Kind: idl.TypeKindArray, Elem: &elem, ArrayLen: idl.ArrayLen{Generic: lt.LenGeneric}}, nil

	case idl.LegacyKindDefined:
		return idl.TypeRef{Kind: idl.TypeKindDefined, Defined: &idl.DefinedRef{Name: lt.Defined}}, nil

	case idl.LegacyKindDefinedWithArgs:
		args := make([]idl.GenericArg, 0, len(lt.Args))
		for _, a := range lt.Args {
			switch {
			case a.Type != nil:
				mapped, err := mapType(*a.Type, path)
				if err != nil {
					return idl.TypeRef{}, err
				}
				args = append(args, idl.GenericArg{Kind: "type", Type: &mapped})
			case a.Value != "":
				args = append(args, idl.GenericArg{Kind: "const", Value: a.Value})
			default:
				fwd := idl.TypeRef{Kind: idl.TypeKindGeneric, Generic: a.Generic}
				args = append(args, idl.GenericArg{Kind: "type", Type: &fwd})
			}
		}
		return idl.TypeRef{Kind: idl.TypeKindDefined, Defined: &idl.DefinedRef{Name: lt.Defined, Generics: args}}, nil

	case idl.LegacyKindGeneric:
		return idl.TypeRef{Kind: idl.TypeKindGeneric, Generic: lt.Generic}, nil

	case idl.LegacyKindTuple:
		elems := make([]idl.TypeRef, 0, len(lt.Tuple))
		for _, el := range lt.Tuple {
			mapped, err := mapType(el, path)
			if err != nil {
				return idl.TypeRef{}, err
			}
			elems = append(elems, mapped)
		}
		return idl.TypeRef{Kind: idl.TypeKindTuple, Tuple: elems}, nil
	}

	return idl.TypeRef{}, &UnmappableError{Path: path, Desc: fmt.Sprintf("unrecognized legacy type encoding %q", lt.Kind)}
}

// postCheck 后置校验。输入侧本就悬空的引用、输入镜像的环与未代入泛型
// 属于用户文档缺陷，由校验器统一上报；此处只拦截转换器自身引入的破坏。
func (c *converter) postCheck(leg *idl.LegacyIdl, out *idl.Idl) error {
	errs := resolver.CheckDocument(out)
	if len(errs) == 0 {
		return nil
	}

	inputNames := make(map[string]struct{}, len(leg.Types)+len(leg.Accounts))
	for i := range leg.Types {
		inputNames[leg.Types[i].Name] = struct{}{}
	}
	for i := range leg.Accounts {
		inputNames[leg.Accounts[i].Name] = struct{}{}
	}

	for _, re := range errs {
		var uerr *resolver.UnresolvedError
		if errors.As(re, &uerr) {
			if _, existed := inputNames[uerr.Name]; !existed {
				continue // 输入侧同样悬空，转换如实保留
			}
			return fmt.Errorf("%w: definition %q was lost during conversion (%v)", ErrInternalInvariant, uerr.Name, re)
		}
		var cerr *resolver.CycleError
		var gerr *resolver.GenericError
		if errors.As(re, &cerr) || errors.As(re, &gerr) {
			continue // 引用结构如实迁移自输入，由校验器上报
		}
		return fmt.Errorf("%w: %v", ErrInternalInvariant, re)
	}
	return nil
}

func hasLegacyState(leg *idl.LegacyIdl) bool {
	if len(leg.State) == 0 {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(leg.State), []byte("null"))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneErrors(in []idl.ErrorCode) []idl.ErrorCode {
	if in == nil {
		return nil
	}
	out := make([]idl.ErrorCode, len(in))
	copy(out, in)
	return out
}
