package jupiter

import (
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/pkg/types"
)

// Trace 单条 Jupiter 主指令在执行轨迹中产生的全部 token 转账，保持执行顺序
type Trace struct {
	Transfers []*core.TokenTransfer
	Hops      []*core.Hop
}

// TransfersFor 收集 instrs[current]（主指令）下属 inner 指令中的 SPL Token 转账，
// 同时按调用栈深度把转账归入各 AMM 调用（hop）。
//
// hop 划分规则：
//   - 非基础设施、非 Jupiter 的程序调用开启一个 hop，嵌套在当前 hop 内部的调用不另起 hop
//   - 栈深大于 hop 的转账属于该 hop；栈深不大于 hop 的任意指令关闭该 hop
//   - 缺少栈深（旧数据）时，hop 持续到下一个 AMM 调用
func TransfersFor(ctx *common.ParserContext, instrs []*core.AdaptedInstruction, current int) *Trace {
	trace := &Trace{}
	if current < 0 || current >= len(instrs) {
		return trace
	}
	outer := instrs[current].IxIndex

	var open *core.Hop
	for i := current + 1; i < len(instrs) && instrs[i].IxIndex == outer; i++ {
		ix := instrs[i]

		if open != nil && hasStack(open.StackHeight, ix.StackHeight) && ix.StackHeight <= open.StackHeight {
			open = nil
		}

		if transfer, ok := common.ParseTransferInstruction(ctx, ix); ok {
			if open != nil {
				transfer.Hop = len(trace.Hops) - 1
				attachTransfer(open, transfer)
			}
			trace.Transfers = append(trace.Transfers, transfer)
			continue
		}

		if !isAmmProgram(ix) {
			continue
		}
		// 嵌套在当前 hop 内部的 CPI（如 AMM 再调用其它程序）不计为新 hop
		if open != nil && hasStack(open.StackHeight, ix.StackHeight) && ix.StackHeight > open.StackHeight {
			continue
		}
		open = &core.Hop{
			Program:     ix.ProgramID,
			InnerIndex:  ix.InnerIndex,
			StackHeight: ix.StackHeight,
		}
		trace.Hops = append(trace.Hops, open)
	}
	return trace
}

func hasStack(a, b uint32) bool {
	return a > 0 && b > 0
}

func isAmmProgram(ix *core.AdaptedInstruction) bool {
	if ix.Malformed || ix.ProgramID.IsZero() {
		return false
	}
	return !consts.IsInfraProgram(ix.ProgramID) && !consts.IsJupiterProgram(ix.ProgramID)
}

// attachTransfer 第一条转账为进入池子的腿，之后 mint 不同的最后一条为转出腿
func attachTransfer(hop *core.Hop, t *core.TokenTransfer) {
	if hop.In == nil {
		hop.In = t
		return
	}
	if t.Mint != hop.In.Mint {
		hop.Out = t
	}
}

// AmmPrograms hop 依次经过的 AMM 程序
func (t *Trace) AmmPrograms() []types.Pubkey {
	out := make([]types.Pubkey, 0, len(t.Hops))
	for _, h := range t.Hops {
		out = append(out, h.Program)
	}
	return out
}
