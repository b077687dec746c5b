package svc

import (
	"github.com/blocto/solana-go-sdk/client"

	"idl-kit-sol/internal/config"
	"idl-kit-sol/internal/logic/converter"
)

// ServiceContext 包含各子命令共享的资源。
type ServiceContext struct {
	Config    config.Config
	RpcClient *client.Client // Solana RPC 客户端，未配置 endpoint 时为 nil
}

// NewServiceContext 创建服务上下文。
func NewServiceContext(c config.Config) *ServiceContext {
	ctx := &ServiceContext{Config: c}
	if c.RpcConf.Endpoint != "" {
		ctx.RpcClient = client.NewClient(c.RpcConf.Endpoint)
	}
	return ctx
}

// ConvertOptions 由配置面拼出迁移选项。
func (s *ServiceContext) ConvertOptions() converter.Options {
	return converter.Options{
		SynthesizeAccountMeta: s.Config.ConvertConf.SynthesizeAccountMeta,
	}
}
