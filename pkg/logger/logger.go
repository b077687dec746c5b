package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化选项，与配置文件中的 logger 段一一对应。
type LogOption struct {
	Format   string // 日志格式，支持 "console" 或 "json"
	LogDir   string // 日志目录；为空时仅输出到 stdout
	Level    string // 日志级别：debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志文件
}

var sugar *zap.SugaredLogger

func init() {
	// 未显式初始化前先挂一个 console/info 的兜底 logger，
	// 保证配置加载失败等早期路径也有日志输出。
	sugar = build(LogOption{Format: "console", Level: "info"})
}

// InitLogger 按配置重建全局 logger，应在进程启动读完配置后调用一次。
func InitLogger(opt LogOption) {
	sugar = build(opt)
}

func build(opt LogOption) *zap.SugaredLogger {
	level, err := zapcore.ParseLevel(opt.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	// 1. 始终输出到 stdout
	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}

	// 2. 配置了日志目录时追加文件输出（lumberjack 负责轮转）
	if opt.LogDir != "" {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, "app.log"),
			MaxSize:    128, // 单文件上限（MB）
			MaxBackups: 10,
			MaxAge:     30, // 保留天数
			Compress:   opt.Compress,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Sync 刷新缓冲中的日志，进程退出前调用。
func Sync() {
	_ = sugar.Sync()
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}
