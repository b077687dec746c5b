package consts

const (
	// DiscriminatorLen 指令/账户/事件判别码的固定字节数（sha256 前缀）
	DiscriminatorLen = 8

	// SpecV010 当前代 IDL 在 metadata.spec 中的版本标记
	SpecV010 = "0.1.0"
)

// 链上 IDL 账户相关常量
const (
	// IdlAccountSeed 程序地址派生 IDL 账户时使用的种子
	IdlAccountSeed = "anchor:idl"

	// IdlAccountTypeName 链上 IDL 容器账户的类型名，
	// 其 account 判别码即容器头部的前 8 字节
	IdlAccountTypeName = "IdlAccount"
)
