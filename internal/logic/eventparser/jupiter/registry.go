package jupiter

import (
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/types"
)

// RegisterHandlers 注册三个 Jupiter 版本的主指令 handler
func RegisterHandlers(m map[types.Pubkey]common.InstructionHandler) {
	for _, v := range []Version{V3, V4, V6} {
		program, _ := ProgramOf(v)
		m[program] = handlerFor(v)
	}
}

func handlerFor(version Version) common.InstructionHandler {
	return func(ctx *common.ParserContext, instrs []*core.AdaptedInstruction, current int) int {
		ix := instrs[current]
		// Jupiter 被其它程序 CPI 调用时，转账归属无法可靠判定，只处理主指令
		if !ix.IsOuter() {
			return current + 1
		}
		handleInstruction(ctx, version, instrs, current)
		return common.SkipInner(instrs, current)
	}
}

func handleInstruction(ctx *common.ParserContext, version Version, instrs []*core.AdaptedInstruction, current int) {
	ix := instrs[current]
	decoded, status := Decode(version, ix)
	switch status {
	case StatusMalformed:
		ctx.MalformedIxs++
		logger.Warnf("[Jupiter] tx=%s ixIndex=%d: malformed %s instruction", ctx.TxHashString(), ix.IxIndex, version)
		return
	case StatusUnrecognized:
		ctx.UnrecognizedIxs++
		logger.Debugf("[Jupiter] tx=%s ixIndex=%d: unrecognized %s instruction", ctx.TxHashString(), ix.IxIndex, version)
		return
	}

	trace := TransfersFor(ctx, instrs, current)
	swap, ok := Assemble(ctx, ix, decoded, trace)
	if !ok {
		logger.Debugf("[Jupiter] tx=%s ixIndex=%d: %s/%s produced no swap (transfers=%d)",
			ctx.TxHashString(), ix.IxIndex, version, decoded.Kind, len(trace.Transfers))
		return
	}
	swap.ID = SwapID(swap.Signature, swap.IxIndex, ctx.SwapCount() == 0)
	ctx.AddSwap(swap)
	logger.Debugf("[Jupiter::%s] tx=%s: swap %s %d -> %d via %v",
		decoded.Kind, ctx.TxHashString(), swap.ID, swap.InputAmount, swap.OutputAmount, ammNames(trace.AmmPrograms()))
}

func ammNames(programs []types.Pubkey) []string {
	names := make([]string, 0, len(programs))
	for _, p := range programs {
		names = append(names, consts.AmmName(p.String()))
	}
	return names
}
