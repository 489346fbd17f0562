package common

import (
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

// ParserContext 是传入每个指令 handler 的解析上下文。
// 包含当前交易的完整结构、余额表与已产出的 swap，生命周期仅限单笔交易。
type ParserContext struct {
	Tx       *core.AdaptedTx                     // 原始交易上下文，包含 slot、指令、账户等
	TxIndex  uint32                              // 当前交易在区块中的位置
	Balances map[types.Pubkey]*core.TokenBalance // tokenAccount → TokenBalance

	swaps []*core.Swap

	// 解析过程中的指令级统计
	MalformedIxs    int
	UnrecognizedIxs int
}

// InstructionHandler 定义了统一的指令解析函数签名。
// 用于从扁平化的 Solana 指令序列中解析 swap。
//
// 参数：
//   - ctx:     当前解析上下文
//   - instrs:  当前交易中已展平的指令列表（含主指令与对应 inner 指令）
//   - current: 当前正在处理的指令索引（instrs[current]）
//
// 返回值：
//   - next: 下一条待处理的指令索引（通常跳过当前主指令的全部 inner 指令）
type InstructionHandler func(ctx *ParserContext, instrs []*core.AdaptedInstruction, current int) (next int)

// BuildParserContext 构造标准化的解析上下文。
func BuildParserContext(tx *core.AdaptedTx) *ParserContext {
	return &ParserContext{
		Tx:       tx,
		TxIndex:  tx.TxIndex,
		Balances: tx.Balances,
	}
}

func (ctx *ParserContext) TxHashString() string {
	return ctx.Tx.Signature.String()
}

// AddSwap 追加 swap，保持指令顺序
func (ctx *ParserContext) AddSwap(swap *core.Swap) {
	ctx.swaps = append(ctx.swaps, swap)
}

// SwapCount 当前交易已产出的 swap 数量
func (ctx *ParserContext) SwapCount() int {
	return len(ctx.swaps)
}

// TakeSwaps 取出全部 swap 并清空
func (ctx *ParserContext) TakeSwaps() []*core.Swap {
	swaps := ctx.swaps
	ctx.swaps = nil
	return swaps
}

// SkipInner 返回 current 之后第一个不属于同一主指令的位置
func SkipInner(instrs []*core.AdaptedInstruction, current int) int {
	outer := instrs[current].IxIndex
	next := current + 1
	for next < len(instrs) && instrs[next].IxIndex == outer {
		next++
	}
	return next
}
