package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/zeromicro/go-zero/core/conf"

	"idl-kit-sol/internal/config"
	"idl-kit-sol/internal/service"
	"idl-kit-sol/internal/svc"
	"idl-kit-sol/pkg/logger"
)

const usageText = `用法: idlkit <command> [flags]

命令:
  convert       旧代 IDL 迁移为当前代（或按目标代归一重排）
  validate      解析并全量校验一份 IDL
  instructions  渲染指令报告
  fetch         从链上 IDL 账户拉取程序的 IDL

各命令均支持 -f 指定配置文件（默认 etc/idlkit.yaml）。
`

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "instructions":
		err = runInstructions(os.Args[2:])
	case "fetch":
		err = runFetch(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令 %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}
	if err != nil {
		logger.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// newToolService 加载配置、初始化日志并装配服务上下文。
func newToolService(configFile string) *service.IdlToolService {
	var c config.Config
	conf.MustLoad(configFile, &c)
	logger.InitLogger(c.LogConf.ToLogOption())
	return service.NewIdlToolService(svc.NewServiceContext(c))
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configFile := fs.String("f", "etc/idlkit.yaml", "the config file")
	in := fs.String("in", "", "输入 IDL 文件")
	out := fs.String("out", "", "输出路径，缺省为 <输入去扩展名>.converted.json")
	_ = fs.Parse(args)
	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	return newToolService(*configFile).ConvertFile(*in, *out)
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("f", "etc/idlkit.yaml", "the config file")
	in := fs.String("in", "", "输入 IDL 文件")
	_ = fs.Parse(args)
	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	return newToolService(*configFile).ValidateFile(*in)
}

func runInstructions(args []string) error {
	fs := flag.NewFlagSet("instructions", flag.ExitOnError)
	configFile := fs.String("f", "etc/idlkit.yaml", "the config file")
	in := fs.String("in", "", "输入 IDL 文件")
	namesOnly := fs.Bool("names-only", false, "仅输出指令名")
	_ = fs.Parse(args)
	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	text, err := newToolService(*configFile).RenderInstructions(*in, *namesOnly)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configFile := fs.String("f", "etc/idlkit.yaml", "the config file")
	program := fs.String("program", "", "程序地址（base58）")
	out := fs.String("out", "", "输出路径，缺省为 <program>.idl.json")
	_ = fs.Parse(args)
	if *program == "" {
		fs.Usage()
		os.Exit(2)
	}
	return newToolService(*configFile).FetchProgram(context.Background(), *program, *out)
}
