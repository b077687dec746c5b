package converter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-kit-sol/internal/logic/idl"
	"idl-kit-sol/internal/logic/resolver"
)

func loadLegacyFixture(t *testing.T) *idl.LegacyIdl {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "idl", "testdata", "legacy_character_nft.json"))
	require.NoError(t, err, "读取夹具失败")
	doc, err := idl.Parse(raw)
	require.NoError(t, err, "夹具应能按旧代解析")
	require.Equal(t, idl.GenerationLegacy, doc.Generation)
	return doc.Legacy
}

func TestConvert_CharacterNftFixture(t *testing.T) {
	leg := loadLegacyFixture(t)

	before, err := json.Marshal(leg)
	require.NoError(t, err)

	out, notes, err := Convert(leg, Options{SynthesizeAccountMeta: true})
	require.NoError(t, err, "迁移应成功")
	require.NotNil(t, out)

	// 输入只读
	after, err := json.Marshal(leg)
	require.NoError(t, err)
	assert.Equal(t, before, after, "转换不应改动输入文档")

	// 元信息降位
	assert.Equal(t, "ChNFT111111111111111111111111111111111111111", out.Address)
	assert.Equal(t, "character_nft", out.Metadata.Name)
	assert.Equal(t, "0.1.0", out.Metadata.Version)
	assert.Equal(t, "0.1.0", out.Metadata.Spec)
	assert.Equal(t, []string{"On-chain character collectibles with staged licensing."}, out.Docs)

	// 指令名 snake 化 + 判别码按 snake 名派生
	require.Len(t, out.Instructions, 6)
	wantIx := map[string][]byte{
		"initialize":          {175, 175, 109, 31, 13, 152, 155, 237},
		"mint":                {51, 57, 225, 47, 182, 146, 137, 166},
		"transfer_from":       {230, 255, 130, 7, 220, 247, 122, 0},
		"advance_stage":       {245, 116, 218, 214, 50, 98, 155, 205},
		"set_mint_fee":        {52, 77, 178, 201, 245, 51, 250, 139},
		"set_transaction_fee": {105, 50, 239, 190, 104, 44, 163, 106},
	}
	for i, name := range []string{"initialize", "mint", "transfer_from", "advance_stage", "set_mint_fee", "set_transaction_fee"} {
		assert.Equal(t, name, out.Instructions[i].Name, "指令顺序应保持声明顺序")
		assert.Equal(t, idl.Bytes(wantIx[name]), out.Instructions[i].Discriminator, "指令 %s 判别码", name)
	}

	// 账户树：标记改名、组合账户组递归、名字 snake 化
	init := out.Instructions[0]
	require.Len(t, init.Accounts, 3)
	assert.Equal(t, "platform", init.Accounts[0].Name)
	assert.True(t, init.Accounts[0].Writable)
	assert.True(t, init.Accounts[0].Signer)
	assert.Equal(t, "system_program", init.Accounts[2].Name)
	assert.False(t, init.Accounts[2].Writable)

	mint := out.Instructions[1]
	require.Len(t, mint.Accounts, 5)
	group := mint.Accounts[3]
	assert.Equal(t, "fee_accounts", group.Name)
	require.True(t, group.IsComposite())
	require.Len(t, group.Accounts, 2)
	assert.Equal(t, "treasury", group.Accounts[1].Name)
	assert.True(t, group.Accounts[1].Writable)

	// 参数名 snake 化 + 类型重映射；返回值保留
	require.Len(t, mint.Args, 2)
	assert.Equal(t, "stage", mint.Args[1].Name)
	assert.Equal(t, idl.TypeKindDefined, mint.Args[1].Type.Kind)
	require.NotNil(t, mint.Returns)
	assert.Equal(t, idl.Prim("u64"), *mint.Returns)

	tf := out.Instructions[2]
	assert.Equal(t, "token_id", tf.Args[0].Name)
	assert.Equal(t, idl.TypeKindOption, tf.Args[1].Type.Kind)

	// 账户与事件判别码
	require.Len(t, out.Accounts, 2)
	assert.Equal(t, idl.Bytes{77, 209, 137, 229, 149, 67, 167, 230}, out.Accounts[0].Discriminator)
	assert.Equal(t, idl.Bytes{140, 115, 165, 36, 241, 153, 102, 84}, out.Accounts[1].Discriminator)
	require.Len(t, out.Events, 2)
	assert.Equal(t, idl.Bytes{238, 247, 141, 164, 52, 239, 99, 134}, out.Events[0].Discriminator)
	assert.Equal(t, idl.Bytes{108, 7, 102, 154, 241, 163, 101, 56}, out.Events[1].Discriminator)

	// 布局提升：types 段在前，随后依次是账户与事件布局
	names := make([]string, 0, len(out.Types))
	for _, td := range out.Types {
		names = append(names, td.Name)
	}
	assert.Equal(t, []string{"CharacterStage", "ProgramState", "Character", "StageAdvanced", "TransferRecorded"}, names)

	ps := out.TypeByName("ProgramState")
	require.NotNil(t, ps)
	require.NotNil(t, ps.Type.Fields)
	assert.Equal(t, idl.Prim("pubkey"), ps.Type.Fields.Named[0].Type, "publicKey 应更名为 pubkey")

	ch := out.TypeByName("Character")
	require.NotNil(t, ch)
	hist := ch.Type.Fields.Named[3]
	assert.Equal(t, idl.TypeKindVec, hist.Type.Kind)
	assert.Equal(t, idl.Prim("pubkey"), *hist.Type.Elem)

	// 事件字段提升后 index 标记丢弃并留有提示
	sa := out.TypeByName("StageAdvanced")
	require.NotNil(t, sa)
	assert.Equal(t, "tokenId", sa.Type.Fields.Named[0].Name, "类型字段名不做 snake 化")

	var pdaNotes, indexNotes int
	for _, n := range notes {
		switch n.Kind {
		case NoteKindPDASynthesized:
			pdaNotes++
		case NoteKindEventIndexDrop:
			indexNotes++
			assert.Equal(t, "StageAdvanced", n.Subject)
		}
	}
	assert.Equal(t, 6, pdaNotes, "每条带账户的指令一条合成提示")
	assert.Equal(t, 1, indexNotes)

	// 错误码原样迁移
	require.Len(t, out.Errors, 4)
	assert.Equal(t, uint32(6000), out.Errors[0].Code)
	assert.Equal(t, "InsufficientFunds", out.Errors[3].Name)

	// 迁移产物引用完整
	assert.Empty(t, resolver.CheckDocument(&idl.Document{Generation: idl.GenerationCurrent, Current: out}))
}

func TestConvert_NoNotesWithoutSynthesis(t *testing.T) {
	leg := loadLegacyFixture(t)
	_, notes, err := Convert(leg, Options{})
	require.NoError(t, err)
	for _, n := range notes {
		assert.NotEqual(t, NoteKindPDASynthesized, n.Kind, "关闭合成开关时不应有 PDA 提示")
	}
}

func TestConvert_COptionRejected(t *testing.T) {
	leg := &idl.LegacyIdl{
		Version: "0.1.0",
		Name:    "demo",
		Instructions: []idl.LegacyInstruction{{
			Name: "park",
			Args: []idl.LegacyField{{
				Name: "slot",
				Type: idl.LegacyTypeRef{
					Kind: idl.LegacyKindCOption,
					Elem: &idl.LegacyTypeRef{Kind: idl.LegacyKindPrimitive, Primitive: "u64"},
				},
			}},
		}},
	}

	_, _, err := Convert(leg, Options{})
	require.Error(t, err)
	var uerr *UnmappableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "instructions.park.args.slot", uerr.Path)
	assert.Contains(t, uerr.Desc, "coption")
}

func TestConvert_StateSectionRejected(t *testing.T) {
	leg := &idl.LegacyIdl{
		Version: "0.1.0",
		Name:    "demo",
		State:   json.RawMessage(`{"struct":{"name":"Pool"}}`),
	}
	_, _, err := Convert(leg, Options{})
	assert.ErrorIs(t, err, ErrLegacyState)

	// 显式 null 不算 state 段
	leg.State = json.RawMessage(`null`)
	_, _, err = Convert(leg, Options{})
	assert.NoError(t, err)
}

func TestConvert_TypedefCollisionKeepsExisting(t *testing.T) {
	leg := &idl.LegacyIdl{
		Version: "0.1.0",
		Name:    "demo",
		Accounts: []idl.LegacyTypeDef{{
			Name: "Vault",
			Type: idl.LegacyTypeDefTy{Kind: "struct", Fields: &idl.LegacyFieldList{Named: []idl.LegacyField{
				{Name: "bump", Type: idl.LegacyTypeRef{Kind: idl.LegacyKindPrimitive, Primitive: "u8"}},
			}}},
		}},
		Types: []idl.LegacyTypeDef{{
			Name: "Vault",
			Type: idl.LegacyTypeDefTy{Kind: "struct", Fields: &idl.LegacyFieldList{Named: []idl.LegacyField{
				{Name: "bump", Type: idl.LegacyTypeRef{Kind: idl.LegacyKindPrimitive, Primitive: "u8"}},
				{Name: "owner", Type: idl.LegacyTypeRef{Kind: idl.LegacyKindPrimitive, Primitive: "publicKey"}},
			}}},
		}},
	}

	out, notes, err := Convert(leg, Options{})
	require.NoError(t, err)

	require.Len(t, out.Types, 1, "重名布局不应重复落入 types")
	assert.Len(t, out.Types[0].Type.Fields.Named, 2, "以 types 段的定义为准")

	found := false
	for _, n := range notes {
		if n.Kind == NoteKindTypedefCollision && n.Subject == "Vault" {
			found = true
		}
	}
	assert.True(t, found, "重名应留有提示")
}

func TestConvert_DanglingReferenceLeftForValidator(t *testing.T) {
	leg := &idl.LegacyIdl{
		Version: "0.1.0",
		Name:    "demo",
		Instructions: []idl.LegacyInstruction{{
			Name: "run",
			Args: []idl.LegacyField{{
				Name: "cfg",
				Type: idl.LegacyTypeRef{Kind: idl.LegacyKindDefined, Defined: "Ghost"},
			}},
		}},
	}

	out, _, err := Convert(leg, Options{})
	require.NoError(t, err, "输入侧悬空引用不阻断迁移")

	errs := resolver.CheckDocument(&idl.Document{Generation: idl.GenerationCurrent, Current: out})
	require.Len(t, errs, 1)
	var uerr *resolver.UnresolvedError
	require.True(t, errors.As(errs[0], &uerr))
	assert.Equal(t, "Ghost", uerr.Name)
}

func TestConvert_GenericForms(t *testing.T) {
	leg := &idl.LegacyIdl{
		Version: "0.1.0",
		Name:    "demo",
		Types: []idl.LegacyTypeDef{{
			Name:     "Holder",
			Generics: []string{"T", "N"},
			Type: idl.LegacyTypeDefTy{Kind: "struct", Fields: &idl.LegacyFieldList{Named: []idl.LegacyField{
				{Name: "items", Type: idl.LegacyTypeRef{
					Kind:       idl.LegacyKindGenericLenArray,
					Elem:       &idl.LegacyTypeRef{Kind: idl.LegacyKindGeneric, Generic: "T"},
					LenGeneric: "N",
				}},
			}}},
		}},
		Instructions: []idl.LegacyInstruction{{
			Name: "load",
			Args: []idl.LegacyField{{
				Name: "holder",
				Type: idl.LegacyTypeRef{
					Kind:    idl.LegacyKindDefinedWithArgs,
					Defined: "Holder",
					Args: []idl.LegacyDefinedArg{
						{Type: &idl.LegacyTypeRef{Kind: idl.LegacyKindPrimitive, Primitive: "u8"}},
						{Value: "4"},
					},
				},
			}},
		}},
	}

	out, _, err := Convert(leg, Options{})
	require.NoError(t, err)

	holder := out.TypeByName("Holder")
	require.NotNil(t, holder)
	require.Len(t, holder.Generics, 2)
	assert.Equal(t, idl.GenericParam{Kind: "type", Name: "T"}, holder.Generics[0], "旧代形参不区分 kind，一律迁移为 type")

	items := holder.Type.Fields.Named[0].Type
	assert.Equal(t, idl.TypeKindArray, items.Kind)
	assert.Equal(t, "N", items.ArrayLen.Generic)

	arg := out.Instructions[0].Args[0].Type
	require.NotNil(t, arg.Defined)
	require.Len(t, arg.Defined.Generics, 2)
	assert.Equal(t, "type", arg.Defined.Generics[0].Kind)
	assert.Equal(t, "const", arg.Defined.Generics[1].Kind)
	assert.Equal(t, "4", arg.Defined.Generics[1].Value)

	// 常量实参绑到迁移形参上不应产生解析失败
	assert.Empty(t, resolver.CheckDocument(&idl.Document{Generation: idl.GenerationCurrent, Current: out}))
}

func TestConvert_RoundTripThroughWire(t *testing.T) {
	leg := loadLegacyFixture(t)
	out, _, err := Convert(leg, Options{})
	require.NoError(t, err)

	doc := &idl.Document{Generation: idl.GenerationCurrent, Current: out}
	raw, err := doc.Serialize()
	require.NoError(t, err)

	back, err := idl.Parse(raw)
	require.NoError(t, err, "迁移产物应能按当前代重新解析")
	require.Equal(t, idl.GenerationCurrent, back.Generation)
	assert.Equal(t, out, back.Current, "线格式往返应结构相等")
}
