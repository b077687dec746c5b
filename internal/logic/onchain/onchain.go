package onchain

import (
	"bytes"
	"fmt"
	"io"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/klauspost/compress/zlib"
	"github.com/near/borsh-go"

	"idl-kit-sol/internal/consts"
	"idl-kit-sol/internal/logic/discriminator"
	"idl-kit-sol/internal/types"
)

// 链上 IDL 账户布局：
//
//	[0:8]   IdlAccount 账户判别码
//	[8:40]  authority 公钥（可改写该账户的权限地址）
//	[40:44] 压缩负载长度，u32 小端
//	[44:]   zlib 压缩的文档字节
//
// 判别码之后的定长头走 borsh，与链上程序的序列化保持一致。
type header struct {
	Authority types.Pubkey
	DataLen   uint32
}

// Container 解码后的链上 IDL 账户内容。
type Container struct {
	Authority types.Pubkey
	Data      []byte // 解压后的文档字节
}

// AccountDiscriminator IdlAccount 容器的账户判别码。
func AccountDiscriminator(params discriminator.Params) ([]byte, error) {
	return params.Derive(discriminator.CategoryAccount, consts.IdlAccountTypeName)
}

// Encode 打包容器：判别码 ‖ borsh 头 ‖ zlib 负载。
func Encode(authority types.Pubkey, doc []byte, params discriminator.Params) ([]byte, error) {
	disc, err := AccountDiscriminator(params)
	if err != nil {
		return nil, fmt.Errorf("derive idl account discriminator: %w", err)
	}

	var payload bytes.Buffer
	zw := zlib.NewWriter(&payload)
	if _, err := zw.Write(doc); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("compress idl payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress idl payload: %w", err)
	}

	head, err := borsh.Serialize(header{Authority: authority, DataLen: uint32(payload.Len())})
	if err != nil {
		return nil, fmt.Errorf("serialize idl account header: %w", err)
	}

	out := make([]byte, 0, len(disc)+len(head)+payload.Len())
	out = append(out, disc...)
	out = append(out, head...)
	out = append(out, payload.Bytes()...)
	return out, nil
}

// Decode 拆包链上账户数据并解压文档字节。
// 判别码不符、头部截断、长度字段越界都按畸形容器拒绝。
func Decode(data []byte, params discriminator.Params) (*Container, error) {
	disc, err := AccountDiscriminator(params)
	if err != nil {
		return nil, fmt.Errorf("derive idl account discriminator: %w", err)
	}

	headLen := len(disc) + 32 + 4
	if len(data) < headLen {
		return nil, fmt.Errorf("idl account data too short: got=%d want>=%d", len(data), headLen)
	}
	if !bytes.Equal(data[:len(disc)], disc) {
		return nil, fmt.Errorf("account discriminator mismatch: not an idl account")
	}

	var head header
	if err := borsh.Deserialize(&head, data[len(disc):]); err != nil {
		return nil, fmt.Errorf("deserialize idl account header: %w", err)
	}

	payload := data[headLen:]
	if int(head.DataLen) > len(payload) {
		return nil, fmt.Errorf("idl payload truncated: header says %d bytes, account holds %d", head.DataLen, len(payload))
	}

	zr, err := zlib.NewReader(bytes.NewReader(payload[:head.DataLen]))
	if err != nil {
		return nil, fmt.Errorf("open idl payload: %w", err)
	}
	defer zr.Close()

	docBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress idl payload: %w", err)
	}
	return &Container{Authority: head.Authority, Data: docBytes}, nil
}

// Address 程序地址 → IDL 账户地址：
// 先取 FindProgramAddress([], program) 的基地址，再以固定种子 CreateWithSeed。
func Address(program types.Pubkey) (types.Pubkey, error) {
	prog := common.PublicKeyFromBytes(program[:])
	base, _, err := common.FindProgramAddress([][]byte{}, prog)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive idl base address: %w", err)
	}
	return types.Pubkey(common.CreateWithSeed(base, consts.IdlAccountSeed, prog)), nil
}
