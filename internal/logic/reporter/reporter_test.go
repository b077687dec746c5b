package reporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-kit-sol/internal/logic/converter"
	"idl-kit-sol/internal/logic/idl"
)

func loadCurrentFixture(t *testing.T) *idl.Idl {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "idl", "testdata", "current_counter.json"))
	require.NoError(t, err)
	doc, err := idl.Parse(raw)
	require.NoError(t, err)
	return doc.Current
}

func TestFormatType(t *testing.T) {
	u64 := idl.Prim("u64")
	cases := []struct {
		name string
		in   idl.TypeRef
		want string
	}{
		{"原语", u64, "u64"},
		{"option", idl.TypeRef{Kind: idl.TypeKindOption, Elem: &u64}, "Option<u64>"},
		{"vec", idl.TypeRef{Kind: idl.TypeKindVec, Elem: &u64}, "Vec<u64>"},
		{"定长数组", idl.TypeRef{Kind: idl.TypeKindArray, Elem: &u64, ArrayLen: idl.ArrayLen{Value: 32}}, "[u64; 32]"},
		{"泛型长度数组", idl.TypeRef{Kind: idl.TypeKindArray, Elem: &u64, ArrayLen: idl.ArrayLen{Generic: "N"}}, "[u64; N]"},
		{"具名", idl.TypeRef{Kind: idl.TypeKindDefined, Defined: &idl.DefinedRef{Name: "Foo"}}, "Foo"},
		{
			"带泛型实参",
			idl.TypeRef{Kind: idl.TypeKindDefined, Defined: &idl.DefinedRef{Name: "Foo", Generics: []idl.GenericArg{
				{Kind: "type", Type: &idl.TypeRef{Kind: idl.TypeKindDefined, Defined: &idl.DefinedRef{Name: "Bar"}}},
				{Kind: "const", Value: "5"},
			}}},
			"Foo<Bar, 5>",
		},
		{"泛型参数", idl.TypeRef{Kind: idl.TypeKindGeneric, Generic: "T"}, "T"},
		{"元组", idl.TypeRef{Kind: idl.TypeKindTuple, Tuple: []idl.TypeRef{idl.Prim("u8"), idl.Prim("string")}}, "(u8, string)"},
		{"嵌套", idl.TypeRef{Kind: idl.TypeKindOption, Elem: &idl.TypeRef{Kind: idl.TypeKindVec, Elem: &u64}}, "Option<Vec<u64>>"},
		{"未知编码", idl.TypeRef{}, "<unknown type>"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, FormatType(c.in))
		})
	}
}

func TestSummaries_Projection(t *testing.T) {
	doc := loadCurrentFixture(t)
	sums := Summaries(doc)
	require.Len(t, sums, 2)

	inc := sums[0]
	assert.Equal(t, "increment", inc.Name)
	require.Len(t, inc.Args, 1)
	assert.Equal(t, Arg{Name: "step", Type: "u64"}, inc.Args[0])
	require.Len(t, inc.Accounts, 2)
	assert.Equal(t, []string{"writable"}, inc.Accounts[0].Attrs)
	assert.Equal(t, 2, inc.Accounts[0].PDASeeds)
	assert.Equal(t, -1, inc.Accounts[1].PDASeeds, "无 PDA 约束")
	assert.Equal(t, []string{"writable", "signer"}, inc.Accounts[1].Attrs)
	assert.Empty(t, inc.Returns)

	reset := sums[1]
	assert.Equal(t, "u64", reset.Returns)
	assert.Empty(t, reset.Args)
}

func TestRender_FullLayout(t *testing.T) {
	doc := loadCurrentFixture(t)
	out := Render(doc, false)

	assert.Contains(t, out, "\nProgram: counter (v0.2.0)\n")
	assert.Contains(t, out, "Address: Cntr1111111111111111111111111111111111111111\n")
	assert.Contains(t, out, "\nInstructions (2):\n")
	assert.Contains(t, out, "\n1. increment\n")
	assert.Contains(t, out, "   Description:\n     Bumps the counter by the given step.\n")
	assert.Contains(t, out, "   Arguments:\n     step (u64)\n")
	assert.Contains(t, out, "      counter (writable)\n        PDA with 2 seeds\n")
	assert.Contains(t, out, "      payer (writable, signer)\n")
	assert.Contains(t, out, "\n2. reset\n")
	assert.Contains(t, out, "   Arguments: None\n")
	assert.Contains(t, out, "   Returns: u64\n")
}

func TestRender_NamesOnly(t *testing.T) {
	doc := loadCurrentFixture(t)
	out := Render(doc, true)

	assert.Contains(t, out, "\n1. increment\n")
	assert.Contains(t, out, "\n2. reset\n")
	assert.NotContains(t, out, "Arguments")
	assert.NotContains(t, out, "Accounts")
	assert.NotContains(t, out, "PDA")
}

// 组合账户组逐层缩进。
func TestRender_CompositeAccounts(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "idl", "testdata", "legacy_character_nft.json"))
	require.NoError(t, err)
	doc, err := idl.Parse(raw)
	require.NoError(t, err)
	out, _, err := converter.Convert(doc.Legacy, converter.Options{})
	require.NoError(t, err)

	text := Render(out, false)
	assert.Contains(t, text, "      fee_accounts:\n        platform (writable)\n        treasury (writable)\n")

	// 无账户指令渲染 None 占位
	empty := &idl.Idl{
		Metadata:     idl.Metadata{Name: "x", Version: "0.0.1"},
		Instructions: []idl.Instruction{{Name: "noop"}},
	}
	assert.Contains(t, Render(empty, false), "   Accounts:\n     None\n")

	lines := strings.Split(text, "\n")
	for _, l := range lines {
		assert.False(t, strings.HasSuffix(l, " "), "行尾不应有多余空格: %q", l)
	}
}
