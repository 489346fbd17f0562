package core

import "jup-indexer-sol/pkg/types"

// TokenTransfer 表示从 inner 指令还原出的一次 SPL Token 转账
type TokenTransfer struct {
	IxIndex     uint16
	InnerIndex  uint16
	StackHeight uint32
	Mint        types.Pubkey
	Source      types.Pubkey // 来源 token account
	Destination types.Pubkey // 目标 token account
	Authority   types.Pubkey // 签名授权者
	Amount      uint64
	Decimals    uint8
	Hop         int // 所属 hop 序号，不属于任何 hop 时为 -1
}

// Hop 表示路由中一次底层 AMM 调用及其进出两条转账
type Hop struct {
	Program     types.Pubkey
	InnerIndex  uint16
	StackHeight uint32
	In          *TokenTransfer // 进入池子的转账
	Out         *TokenTransfer // 池子转出的转账（mint 与 In 不同）
}

// Complete 进出两条腿都已匹配
func (h *Hop) Complete() bool {
	return h.In != nil && h.Out != nil
}

// Swap 一次 Jupiter 顶层指令还原出的兑换记录，金额均为 trace 中实际转账数量
type Swap struct {
	ID        string
	Signature types.Signature
	Slot      uint64
	BlockTime int64
	TxIndex   uint32
	IxIndex   uint16

	Protocol string // V3 / V4 / V6
	Kind     string // 指令名，如 shared_accounts_route
	ExactOut bool

	User           types.Pubkey
	InputMint      types.Pubkey
	OutputMint     types.Pubkey
	InputAmount    uint64
	OutputAmount   uint64
	InputDecimals  uint8
	OutputDecimals uint8

	Route     []types.Pubkey // 中间 mint，按执行顺序去重
	FeeAmount uint64

	// QuotedAmount 指令携带的报价：exact-in 为报价输出量，exact-out 为报价输入量，无报价为 0
	QuotedAmount uint64

	Hops []*Hop
}
