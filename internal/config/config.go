package config

import (
	"idl-kit-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// ConvertConfig 迁移行为配置。
type ConvertConfig struct {
	TargetSpec            string `yaml:"target_spec"`             // 目标架构代：legacy / current，默认 current
	ValidateAfterConvert  bool   `yaml:"validate_after_convert"`  // 迁移后立即执行全量校验
	SynthesizeAccountMeta bool   `yaml:"synthesize_account_meta"` // 旧代账户约束按空 PDA 元数据合成并记录提示
}

// RpcConfig 链上 IDL 账户拉取的 RPC 配置。
type RpcConfig struct {
	Endpoint   string `yaml:"endpoint"`    // Solana RPC 地址，例如 https://api.mainnet-beta.solana.com
	TimeoutSec int    `yaml:"timeout_sec"` // 单次请求超时（秒）
}

// Config 是主配置结构体，驱动 idlkit 的各子命令。
type Config struct {
	LogConf     LogConfig     `yaml:"logger"`  // 日志配置
	ConvertConf ConvertConfig `yaml:"convert"` // 迁移配置
	RpcConf     RpcConfig     `yaml:"rpc"`     // RPC 配置
}
