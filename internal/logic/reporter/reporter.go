package reporter

import (
	"fmt"
	"strings"

	"idl-kit-sol/internal/logic/idl"
)

// Arg 参数投影：类型已格式化为可读文本。
type Arg struct {
	Name string
	Type string
	Docs []string
}

// AccountEntry 账户约束投影。Nested 非空时为组合账户组，自身无属性。
type AccountEntry struct {
	Name     string
	Attrs    []string // writable / signer / optional，按此顺序
	PDASeeds int      // -1 表示无 PDA 约束
	Nested   []AccountEntry
}

// Summary 单条指令的只读投影，顺序与文档声明一致。
type Summary struct {
	Name     string
	Docs     []string
	Args     []Arg
	Accounts []AccountEntry
	Returns  string // 空串表示无返回值
}

// Summaries 纯投影：不改动文档，不做任何校验。
func Summaries(doc *idl.Idl) []Summary {
	out := make([]Summary, 0, len(doc.Instructions))
	for i := range doc.Instructions {
		ix := &doc.Instructions[i]
		s := Summary{
			Name:     ix.Name,
			Docs:     ix.Docs,
			Args:     make([]Arg, 0, len(ix.Args)),
			Accounts: projectAccounts(ix.Accounts),
		}
		for _, arg := range ix.Args {
			s.Args = append(s.Args, Arg{Name: arg.Name, Type: FormatType(arg.Type), Docs: arg.Docs})
		}
		if ix.Returns != nil {
			s.Returns = FormatType(*ix.Returns)
		}
		out = append(out, s)
	}
	return out
}

func projectAccounts(items []idl.InstructionAccount) []AccountEntry {
	out := make([]AccountEntry, 0, len(items))
	for i := range items {
		acc := &items[i]
		entry := AccountEntry{Name: acc.Name, PDASeeds: -1}
		if acc.IsComposite() {
			entry.Nested = projectAccounts(acc.Accounts)
			out = append(out, entry)
			continue
		}
		if acc.Writable {
			entry.Attrs = append(entry.Attrs, "writable")
		}
		if acc.Signer {
			entry.Attrs = append(entry.Attrs, "signer")
		}
		if acc.Optional {
			entry.Attrs = append(entry.Attrs, "optional")
		}
		if acc.PDA != nil {
			entry.PDASeeds = len(acc.PDA.Seeds)
		}
		out = append(out, entry)
	}
	return out
}

// Render 渲染指令报告。namesOnly 时仅输出编号与指令名。
func Render(doc *idl.Idl, namesOnly bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nProgram: %s (v%s)\n", doc.Metadata.Name, doc.Metadata.Version)
	fmt.Fprintf(&b, "Address: %s\n", doc.Address)
	fmt.Fprintf(&b, "\nInstructions (%d):\n", len(doc.Instructions))

	for idx, s := range Summaries(doc) {
		fmt.Fprintf(&b, "\n%d. %s\n", idx+1, s.Name)
		if namesOnly {
			continue
		}

		if len(s.Docs) > 0 {
			b.WriteString("   Description:\n")
			for _, line := range s.Docs {
				fmt.Fprintf(&b, "     %s\n", line)
			}
		}

		if len(s.Args) > 0 {
			b.WriteString("   Arguments:\n")
			for _, arg := range s.Args {
				fmt.Fprintf(&b, "     %s (%s)\n", arg.Name, arg.Type)
				if len(arg.Docs) > 0 {
					fmt.Fprintf(&b, "       %s\n", strings.Join(arg.Docs, " "))
				}
			}
		} else {
			b.WriteString("   Arguments: None\n")
		}

		b.WriteString("   Accounts:\n")
		if len(s.Accounts) == 0 {
			b.WriteString("     None\n")
		} else {
			renderAccounts(&b, s.Accounts, 1)
		}

		if s.Returns != "" {
			fmt.Fprintf(&b, "   Returns: %s\n", s.Returns)
		}
	}
	return b.String()
}

// renderAccounts 组合账户组逐层加深缩进。
func renderAccounts(b *strings.Builder, entries []AccountEntry, depth int) {
	indent := strings.Repeat("  ", depth+2)
	for _, e := range entries {
		if e.Nested != nil {
			fmt.Fprintf(b, "%s%s:\n", indent, e.Name)
			renderAccounts(b, e.Nested, depth+1)
			continue
		}
		attr := ""
		if len(e.Attrs) > 0 {
			attr = fmt.Sprintf(" (%s)", strings.Join(e.Attrs, ", "))
		}
		fmt.Fprintf(b, "%s%s%s\n", indent, e.Name, attr)
		if e.PDASeeds >= 0 {
			fmt.Fprintf(b, "%s  PDA with %d seeds\n", indent, e.PDASeeds)
		}
	}
}

// FormatType 类型的可读文本形态：Option<u64>、Vec<pubkey>、[u8; 32]、
// Foo<Bar, 5>、(u8, u16)。未知编码渲染为占位符而非失败。
func FormatType(t idl.TypeRef) string {
	switch t.Kind {
	case idl.TypeKindPrimitive:
		return t.Primitive
	case idl.TypeKindOption:
		return fmt.Sprintf("Option<%s>", FormatType(*t.Elem))
	case idl.TypeKindVec:
		return fmt.Sprintf("Vec<%s>", FormatType(*t.Elem))
	case idl.TypeKindArray:
		if t.ArrayLen.Generic != "" {
			return fmt.Sprintf("[%s; %s]", FormatType(*t.Elem), t.ArrayLen.Generic)
		}
		return fmt.Sprintf("[%s; %d]", FormatType(*t.Elem), t.ArrayLen.Value)
	case idl.TypeKindDefined:
		if len(t.Defined.Generics) == 0 {
			return t.Defined.Name
		}
		args := make([]string, 0, len(t.Defined.Generics))
		for _, g := range t.Defined.Generics {
			if g.Type != nil {
				args = append(args, FormatType(*g.Type))
			} else {
				args = append(args, g.Value)
			}
		}
		return fmt.Sprintf("%s<%s>", t.Defined.Name, strings.Join(args, ", "))
	case idl.TypeKindGeneric:
		return t.Generic
	case idl.TypeKindTuple:
		parts := make([]string, 0, len(t.Tuple))
		for _, el := range t.Tuple {
			parts = append(parts, FormatType(el))
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	}
	return "<unknown type>"
}
