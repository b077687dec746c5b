package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/blocto/solana-go-sdk/client"

	"idl-kit-sol/internal/logic/discriminator"
	"idl-kit-sol/internal/logic/onchain"
	"idl-kit-sol/internal/types"
	"idl-kit-sol/pkg/logger"
)

// IdlFetchService 从链上 IDL 账户拉取并解包文档字节。
type IdlFetchService struct {
	client  *client.Client // Solana RPC客户端
	timeout time.Duration
}

func NewIdlFetchService(rpcClient *client.Client, timeoutSec int) (*IdlFetchService, error) {
	if rpcClient == nil {
		return nil, errors.New("rpc client not configured")
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &IdlFetchService{
		client:  rpcClient,
		timeout: time.Duration(timeoutSec) * time.Second,
	}, nil
}

// Fetch 拉取程序的链上 IDL。返回解压后的文档字节与账户的 authority。
func (s *IdlFetchService) Fetch(ctx context.Context, programBase58 string) (doc []byte, authority types.Pubkey, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[IdlFetchService] fetch panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("fetch panic: %v", r)
		}
	}()

	program, err := types.TryPubkeyFromBase58(programBase58)
	if err != nil {
		return nil, types.Pubkey{}, fmt.Errorf("invalid program address %q: %w", programBase58, err)
	}

	// 1. 程序地址 → IDL 账户地址
	idlAddr, err := onchain.Address(program)
	if err != nil {
		return nil, types.Pubkey{}, err
	}
	logger.Infof("[IdlFetchService] program=%s idl_account=%s", program, idlAddr)

	// 2. 拉取账户数据
	rpcCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	info, err := s.client.GetAccountInfo(rpcCtx, idlAddr.String())
	if err != nil {
		return nil, types.Pubkey{}, fmt.Errorf("GetAccountInfo failed: %w", err)
	}
	logger.Infof("[IdlFetchService] GetAccountInfo 成功, 数据: %d 字节, 耗时: %v", len(info.Data), time.Since(start))

	if len(info.Data) == 0 {
		return nil, types.Pubkey{}, fmt.Errorf("program %s has no idl account data at %s", program, idlAddr)
	}

	// 3. 解包容器并解压文档字节
	container, err := onchain.Decode(info.Data, discriminator.V0())
	if err != nil {
		return nil, types.Pubkey{}, fmt.Errorf("decode idl account %s: %w", idlAddr, err)
	}

	// authority 仅记录，不做控制判断：读取方不需要写权限
	logger.Infof("[IdlFetchService] authority=%s, 文档: %d 字节", container.Authority, len(container.Data))
	return container.Data, container.Authority, nil
}
