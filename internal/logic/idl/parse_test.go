package idl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "读取测试样例失败")
	return data
}

// 测试代际探测：两代样例与异常输入
func TestDetectGeneration(t *testing.T) {
	gen, err := DetectGeneration(readFixture(t, "current_counter.json"))
	require.NoError(t, err)
	assert.Equal(t, GenerationCurrent, gen, "metadata.spec=0.1.0 应判为当前代")

	gen, err = DetectGeneration(readFixture(t, "legacy_character_nft.json"))
	require.NoError(t, err)
	assert.Equal(t, GenerationLegacy, gen, "顶层 version+name 应判为旧代")

	// spec 为不认识的版本号 → 版本错误
	_, err = DetectGeneration([]byte(`{"metadata":{"spec":"9.9.9","name":"x","version":"0.1.0"}}`))
	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "9.9.9", verr.Spec)

	// 两代标记都缺失 → 结构不可识别
	_, err = DetectGeneration([]byte(`{"foo": 1}`))
	assert.ErrorIs(t, err, ErrMalformed)

	// 顶层不是对象
	_, err = DetectGeneration([]byte(`[1,2]`))
	assert.Error(t, err)
}

// 测试旧代文档解析：名字保持 camelCase、组合账户组、事件 index 标记
func TestParse_Legacy(t *testing.T) {
	doc, err := Parse(readFixture(t, "legacy_character_nft.json"))
	require.NoError(t, err)
	require.Equal(t, GenerationLegacy, doc.Generation)
	leg := doc.Legacy
	require.NotNil(t, leg)

	assert.Equal(t, "character_nft", leg.Name)
	assert.Equal(t, "0.1.0", leg.Version)
	assert.Equal(t, "ChNFT111111111111111111111111111111111111111", leg.Address(), "应从自由形态 metadata 中取出 address")

	require.Len(t, leg.Instructions, 6)
	assert.Equal(t, "transferFrom", leg.Instructions[2].Name, "旧代指令名应保持原样")

	// mint 指令：组合账户组 + returns
	mint := leg.Instructions[1]
	require.Len(t, mint.Accounts, 5)
	group := mint.Accounts[3]
	assert.Equal(t, "feeAccounts", group.Name)
	require.Len(t, group.Accounts, 2, "feeAccounts 应是含两个成员的组合账户组")
	assert.True(t, group.Accounts[0].IsMut)
	require.NotNil(t, mint.Returns)
	assert.Equal(t, LegacyKindPrimitive, mint.Returns.Kind)
	assert.Equal(t, "u64", mint.Returns.Primitive)

	// 账户字段内联
	require.Len(t, leg.Accounts, 2)
	state := leg.Accounts[0]
	assert.Equal(t, "ProgramState", state.Name)
	require.NotNil(t, state.Type.Fields)
	assert.Equal(t, "publicKey", state.Type.Fields.Named[0].Type.Primitive)

	// 事件 index 标记透传
	require.Len(t, leg.Events, 2)
	assert.True(t, leg.Events[0].Fields[0].Index)
	assert.False(t, leg.Events[0].Fields[1].Index)
}

// 测试当前代文档解析：判别码、PDA 种子、关系引用
func TestParse_Current(t *testing.T) {
	doc, err := Parse(readFixture(t, "current_counter.json"))
	require.NoError(t, err)
	require.Equal(t, GenerationCurrent, doc.Generation)
	cur := doc.Current
	require.NotNil(t, cur)

	assert.Equal(t, "counter", cur.Metadata.Name)
	assert.Equal(t, "0.1.0", cur.Metadata.Spec)

	require.Len(t, cur.Instructions, 2)
	inc := cur.Instructions[0]
	assert.Equal(t, Bytes{11, 18, 104, 9, 104, 174, 59, 33}, inc.Discriminator)

	// counter 账户带 PDA：const 种子 + account 种子
	counter := inc.Accounts[0]
	require.NotNil(t, counter.PDA)
	require.Len(t, counter.PDA.Seeds, 2)
	assert.Equal(t, "const", counter.PDA.Seeds[0].Kind)
	assert.Equal(t, Bytes("counter"), counter.PDA.Seeds[0].Value)
	assert.Equal(t, "payer", counter.PDA.Seeds[1].Path)

	// reset 指令的 relations 引用
	reset := cur.Instructions[1]
	assert.Equal(t, []string{"counter"}, reset.Accounts[1].Relations)
	require.NotNil(t, reset.Returns)

	// 账户布局通过同名 types 条目取得
	layout := cur.TypeByName("Counter")
	require.NotNil(t, layout)
	assert.Equal(t, "struct", layout.Type.Kind)
	require.NotNil(t, cur.AccountByName("Counter"))
	assert.Nil(t, cur.AccountByName("Missing"))
}

// 测试未知类型种类的拒绝与路径定位
func TestParse_UnknownTypeKind(t *testing.T) {
	// 当前代不认识旧代的 publicKey 原语
	_, err := Parse([]byte(`{
		"address": "x",
		"metadata": {"name": "demo", "version": "0.1.0", "spec": "0.1.0"},
		"instructions": [{
			"name": "init",
			"discriminator": [1,2,3,4,5,6,7,8],
			"accounts": [],
			"args": [{"name": "owner", "type": "publicKey"}]
		}]
	}`))
	var kerr *TypeKindError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "publicKey", kerr.Kind)

	var perr *ParseError
	require.ErrorAs(t, err, &perr, "错误应带段路径")
	assert.Equal(t, "instructions", perr.Section)
	assert.Equal(t, 0, perr.Index)
	assert.Equal(t, "init", perr.Name)

	// 旧代不认识的复合种类键
	_, err = Parse([]byte(`{
		"version": "0.1.0",
		"name": "demo",
		"instructions": [],
		"types": [{
			"name": "Weird",
			"type": {"kind": "struct", "fields": [{"name": "m", "type": {"hashMap": ["u8", "u8"]}}]}
		}]
	}`))
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "hashMap", kerr.Kind)
	assert.True(t, kerr.Legacy)
}

// 测试旧代的扩展类型编码：coption / genericLenArray / definedWithTypeArgs
func TestParse_LegacyExtendedKinds(t *testing.T) {
	data := []byte(`{
		"version": "1.2.3",
		"name": "demo",
		"instructions": [],
		"types": [{
			"name": "Holder",
			"generics": ["T", "N"],
			"type": {"kind": "struct", "fields": [
				{"name": "maybeMint", "type": {"coption": "publicKey"}},
				{"name": "buf", "type": {"genericLenArray": ["u8", "N"]}},
				{"name": "inner", "type": {"definedWithTypeArgs": {"name": "Cell", "args": [{"type": "u64"}, {"value": "8"}]}}}
			]}
		}]
	}`)
	doc, err := Parse(data)
	require.NoError(t, err)
	fields := doc.Legacy.Types[0].Type.Fields.Named
	assert.Equal(t, LegacyKindCOption, fields[0].Type.Kind)
	assert.Equal(t, LegacyKindGenericLenArray, fields[1].Type.Kind)
	assert.Equal(t, "N", fields[1].Type.LenGeneric)
	assert.Equal(t, LegacyKindDefinedWithArgs, fields[2].Type.Kind)
	assert.Equal(t, "Cell", fields[2].Type.Defined)
	require.Len(t, fields[2].Type.Args, 2)
	assert.Equal(t, "8", fields[2].Type.Args[1].Value)
}

// 测试缺名条目的拒绝
func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte(`{
		"address": "x",
		"metadata": {"name": "demo", "version": "0.1.0", "spec": "0.1.0"},
		"instructions": [{"discriminator": [1,2,3,4,5,6,7,8], "accounts": [], "args": []}]
	}`))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "instructions", perr.Section)
	assert.Contains(t, perr.Error(), "missing a name")
}

// 测试判别码字节数组的取值范围
func TestParse_DiscriminatorOutOfRange(t *testing.T) {
	_, err := Parse([]byte(`{
		"address": "x",
		"metadata": {"name": "demo", "version": "0.1.0", "spec": "0.1.0"},
		"instructions": [{"name": "init", "discriminator": [300,2,3,4,5,6,7,8], "accounts": [], "args": []}]
	}`))
	require.Error(t, err)
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}
