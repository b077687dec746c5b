package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"idl-kit-sol/internal/logic/converter"
	"idl-kit-sol/internal/logic/idl"
	"idl-kit-sol/internal/logic/reporter"
	"idl-kit-sol/internal/logic/validator"
	"idl-kit-sol/internal/svc"
	"idl-kit-sol/pkg/logger"
)

// 目标架构代取值。
const (
	TargetCurrent = "current"
	TargetLegacy  = "legacy"
)

// IdlToolService 子命令的文件管线：读入 → 解析 → 迁移/校验/投影 → 写出。
// 核心逻辑都在 internal/logic 下，这里只做编排与 I/O。
type IdlToolService struct {
	svcCtx *svc.ServiceContext
}

func NewIdlToolService(svcCtx *svc.ServiceContext) *IdlToolService {
	return &IdlToolService{svcCtx: svcCtx}
}

// ConvertFile 迁移（或按目标代归一重排）一份 IDL 文件。
// outPath 为空时写到 <input 去扩展名>.converted.json。
func (s *IdlToolService) ConvertFile(inPath, outPath string) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read idl file %s: %w", inPath, err)
	}

	doc, err := idl.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse idl file %s: %w", inPath, err)
	}

	target := s.svcCtx.Config.ConvertConf.TargetSpec
	if target == "" {
		target = TargetCurrent
	}
	if target != TargetCurrent && target != TargetLegacy {
		return fmt.Errorf("unknown target spec %q, want %q or %q", target, TargetCurrent, TargetLegacy)
	}

	out := doc
	switch {
	case doc.Generation == idl.GenerationLegacy && target == TargetCurrent:
		// 1. 旧代 → 当前代迁移
		converted, notes, err := converter.Convert(doc.Legacy, s.svcCtx.ConvertOptions())
		if err != nil {
			return fmt.Errorf("convert idl: %w", err)
		}
		for _, n := range notes {
			logger.Warnf("[IdlToolService] 迁移提示(%s): %s", n.Kind, n.Message)
		}
		// 2. 按配置迁移后立即校验
		if s.svcCtx.Config.ConvertConf.ValidateAfterConvert {
			if err := reportResult(validator.Validate(converted)); err != nil {
				return err
			}
		}
		out = &idl.Document{Generation: idl.GenerationCurrent, Current: converted}

	case doc.Generation == idl.GenerationCurrent && target == TargetLegacy:
		return fmt.Errorf("downgrading a current-generation idl to legacy is not supported")

	default:
		// 代一致：只做归一化重排，不迁移
		logger.Infof("[IdlToolService] 源与目标架构代一致(%s)，按原代重新序列化", doc.Generation)
	}

	data, err := out.Serialize()
	if err != nil {
		return fmt.Errorf("serialize idl: %w", err)
	}

	if outPath == "" {
		outPath = defaultConvertedPath(inPath)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write converted idl to %s: %w", outPath, err)
	}
	logger.Infof("[IdlToolService] 迁移完成, 已写入 %s", outPath)
	return nil
}

// ValidateFile 解析并全量校验一份 IDL 文件；旧代输入先迁移再校验。
func (s *IdlToolService) ValidateFile(inPath string) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read idl file %s: %w", inPath, err)
	}

	current, err := s.parseToCurrent(raw)
	if err != nil {
		return err
	}

	if err := reportResult(validator.Validate(current)); err != nil {
		return err
	}

	// 校验成功摘要
	logger.Infof("[IdlToolService] IDL 校验通过")
	logger.Infof("[IdlToolService] Program: %s", current.Metadata.Name)
	logger.Infof("[IdlToolService] Version: %s", current.Metadata.Version)
	logger.Infof("[IdlToolService] Accounts: %d", len(current.Accounts))
	logger.Infof("[IdlToolService] Instructions: %d", len(current.Instructions))
	logger.Infof("[IdlToolService] Types: %d", len(current.Types))
	return nil
}

// RenderInstructions 渲染指令报告文本；旧代输入先迁移。
func (s *IdlToolService) RenderInstructions(inPath string, namesOnly bool) (string, error) {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return "", fmt.Errorf("read idl file %s: %w", inPath, err)
	}

	current, err := s.parseToCurrent(raw)
	if err != nil {
		return "", err
	}
	return reporter.Render(current, namesOnly), nil
}

// FetchProgram 拉取程序的链上 IDL，走同一条解析→校验管线后落盘。
// outPath 为空时写到 <program>.idl.json。
func (s *IdlToolService) FetchProgram(ctx context.Context, programBase58, outPath string) error {
	fetcher, err := NewIdlFetchService(s.svcCtx.RpcClient, s.svcCtx.Config.RpcConf.TimeoutSec)
	if err != nil {
		return err
	}

	raw, _, err := fetcher.Fetch(ctx, programBase58)
	if err != nil {
		return err
	}

	current, err := s.parseToCurrent(raw)
	if err != nil {
		return err
	}
	if err := reportResult(validator.Validate(current)); err != nil {
		return err
	}

	doc := &idl.Document{Generation: idl.GenerationCurrent, Current: current}
	data, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serialize fetched idl: %w", err)
	}

	if outPath == "" {
		outPath = programBase58 + ".idl.json"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write fetched idl to %s: %w", outPath, err)
	}
	logger.Infof("[IdlToolService] 已将 %s 的 IDL 写入 %s", programBase58, outPath)
	return nil
}

// parseToCurrent 解析任意代文档并归一到当前代。
func (s *IdlToolService) parseToCurrent(raw []byte) (*idl.Idl, error) {
	doc, err := idl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse idl: %w", err)
	}
	if doc.Generation == idl.GenerationCurrent {
		return doc.Current, nil
	}

	converted, notes, err := converter.Convert(doc.Legacy, s.svcCtx.ConvertOptions())
	if err != nil {
		return nil, fmt.Errorf("convert legacy idl: %w", err)
	}
	for _, n := range notes {
		logger.Warnf("[IdlToolService] 迁移提示(%s): %s", n.Kind, n.Message)
	}
	return converted, nil
}

// reportResult 逐条输出校验结论；存在 error 级结论时整体失败。
func reportResult(res *validator.Result) error {
	for _, f := range res.Findings {
		switch f.Severity {
		case validator.SeverityError:
			logger.Errorf("[IdlToolService] %s @ %s: %s", f.Code, f.Path, f.Message)
		default:
			logger.Warnf("[IdlToolService] %s @ %s: %s", f.Code, f.Path, f.Message)
		}
	}
	if !res.OK() {
		return fmt.Errorf("idl validation failed: %d error(s), %d warning(s)", res.ErrorCount(), res.WarningCount())
	}
	return nil
}

// defaultConvertedPath foo/bar.json → foo/bar.converted.json（无扩展名时直接追加）。
func defaultConvertedPath(inPath string) string {
	ext := filepath.Ext(inPath)
	return strings.TrimSuffix(inPath, ext) + ".converted.json"
}
