package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-kit-sol/internal/config"
	"idl-kit-sol/internal/logic/idl"
	"idl-kit-sol/internal/svc"
)

func newTestService(t *testing.T, c config.Config) *IdlToolService {
	t.Helper()
	return NewIdlToolService(svc.NewServiceContext(c))
}

func fixturePath(name string) string {
	return filepath.Join("..", "logic", "idl", "testdata", name)
}

// 临时目录里的输入副本，避免把转换产物写进 testdata。
func stageFixture(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile(fixturePath(name))
	require.NoError(t, err)
	dst := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(dst, raw, 0o644))
	return dst
}

func TestConvertFile_LegacyToCurrent(t *testing.T) {
	s := newTestService(t, config.Config{
		ConvertConf: config.ConvertConfig{
			TargetSpec:            TargetCurrent,
			ValidateAfterConvert:  true,
			SynthesizeAccountMeta: true,
		},
	})

	in := stageFixture(t, "legacy_character_nft.json")
	require.NoError(t, s.ConvertFile(in, ""))

	// 缺省输出路径：去扩展名 + .converted.json
	out := filepath.Join(filepath.Dir(in), "legacy_character_nft.converted.json")
	raw, err := os.ReadFile(out)
	require.NoError(t, err, "输出应写到缺省路径")

	doc, err := idl.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, idl.GenerationCurrent, doc.Generation)
	assert.Equal(t, "character_nft", doc.Current.Metadata.Name)
	assert.Len(t, doc.Current.Instructions, 6)
}

func TestConvertFile_SameGenerationNormalizes(t *testing.T) {
	s := newTestService(t, config.Config{})

	in := stageFixture(t, "current_counter.json")
	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, s.ConvertFile(in, out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := idl.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, idl.GenerationCurrent, doc.Generation, "同代输入仅归一重排")
	assert.Equal(t, "counter", doc.Current.Metadata.Name)
}

func TestConvertFile_DowngradeRejected(t *testing.T) {
	s := newTestService(t, config.Config{
		ConvertConf: config.ConvertConfig{TargetSpec: TargetLegacy},
	})

	in := stageFixture(t, "current_counter.json")
	err := s.ConvertFile(in, filepath.Join(t.TempDir(), "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestConvertFile_UnknownTarget(t *testing.T) {
	s := newTestService(t, config.Config{
		ConvertConf: config.ConvertConfig{TargetSpec: "v2"},
	})
	err := s.ConvertFile(stageFixture(t, "current_counter.json"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target spec")
}

func TestValidateFile(t *testing.T) {
	s := newTestService(t, config.Config{
		ConvertConf: config.ConvertConfig{SynthesizeAccountMeta: true},
	})

	// 当前代与旧代（自动迁移后）都应通过
	assert.NoError(t, s.ValidateFile(fixturePath("current_counter.json")))
	assert.NoError(t, s.ValidateFile(fixturePath("legacy_character_nft.json")))
}

func TestValidateFile_ReportsErrors(t *testing.T) {
	bad := map[string]interface{}{
		"address":  "",
		"metadata": map[string]string{"name": "", "version": "", "spec": "0.1.0"},
		"instructions": []map[string]interface{}{
			{"name": "go", "discriminator": []int{1, 2}, "accounts": []int{}, "args": []int{}},
		},
	}
	raw, err := json.Marshal(bad)
	require.NoError(t, err)
	in := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(in, raw, 0o644))

	err = newTestService(t, config.Config{}).ValidateFile(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestRenderInstructions(t *testing.T) {
	s := newTestService(t, config.Config{})

	text, err := s.RenderInstructions(fixturePath("current_counter.json"), false)
	require.NoError(t, err)
	assert.Contains(t, text, "Program: counter (v0.2.0)")
	assert.Contains(t, text, "1. increment")

	// 旧代输入自动迁移后渲染
	text, err = s.RenderInstructions(fixturePath("legacy_character_nft.json"), true)
	require.NoError(t, err)
	assert.Contains(t, text, "3. transfer_from")
	assert.NotContains(t, text, "Arguments")
}

func TestNewIdlFetchService_RequiresClient(t *testing.T) {
	_, err := NewIdlFetchService(nil, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc client not configured")
}

func TestDefaultConvertedPath(t *testing.T) {
	assert.Equal(t, "a/b.converted.json", defaultConvertedPath("a/b.json"))
	assert.Equal(t, "idl.converted.json", defaultConvertedPath("idl"))
}
