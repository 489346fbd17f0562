package eventparser

import (
	"runtime/debug"
	"sync"

	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/internal/logic/eventparser/jupiter"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/types"
)

// handlers 是 Solana ProgramID → 对应解析 handler 的路由表。
// 所有协议模块通过 RegisterHandlers 注册进该表，Init 之后只读。
var (
	handlers = map[types.Pubkey]common.InstructionHandler{}
	initOnce sync.Once
)

// Init 初始化所有 handler 注册器等解析所需状态，可重复调用
func Init() {
	initOnce.Do(func() {
		jupiter.RegisterHandlers(handlers)
	})
}

// TxStats 单笔交易的指令级解析统计
type TxStats struct {
	MalformedIxs    int
	UnrecognizedIxs int
	Panicked        bool
}

// ExtractSwapsFromTx 解析单笔交易中的全部 Jupiter swap，按主指令顺序返回。
// 任何 panic 都只影响本交易，返回空结果。
func ExtractSwapsFromTx(adaptedTx *core.AdaptedTx) (result []*core.Swap, stats TxStats) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[eventparser::ExtractSwapsFromTx] panic tx=%s: %+v\nstack: %s",
				adaptedTx.Signature, r, debug.Stack())
			result = nil
			stats = TxStats{Panicked: true}
		}
	}()

	ctx := common.BuildParserContext(adaptedTx)
	instrs := ctx.Tx.Instructions

	// 扫描 InitializeAccount 指令，补全 TokenAccount → Mint → Owner 映射
	common.PreScanInitAccountBalances(ctx, instrs)

	for i := 0; i < len(instrs); {
		ix := instrs[i]
		if ix.Malformed && ix.IsOuter() && ix.ProgramID.IsZero() {
			// programIdIndex 越界，无法路由
			ctx.MalformedIxs++
		}
		if handler, ok := handlers[ix.ProgramID]; ok {
			if next := handler(ctx, instrs, i); next > i {
				i = next
				continue
			}
		}
		i++
	}
	return ctx.TakeSwaps(), TxStats{
		MalformedIxs:    ctx.MalformedIxs,
		UnrecognizedIxs: ctx.UnrecognizedIxs,
	}
}
