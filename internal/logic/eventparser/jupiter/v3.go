package jupiter

import (
	"jup-indexer-sol/internal/logic/core"
)

// V3 每个 AMM 一条指令，参数均以 in_amount: Option<u64> 开头，没有报价字段。
// 账户布局随 AMM 变化，这里不提取角色，归属判定依赖余额表中的 owner。

type v3SwapArgs struct {
	InAmount         *uint64
	MinimumOutAmount uint64
	PlatformFeeBps   uint8
}

type v3WhirlpoolArgs struct {
	InAmount         *uint64
	MinimumOutAmount uint64
	AToB             bool
	PlatformFeeBps   uint8
}

type v3SerumArgs struct {
	Side             uint8
	InAmount         *uint64
	MinimumOutAmount uint64
	PlatformFeeBps   uint8
}

var v3Kinds = map[uint64]Kind{
	discTokenSwap:         KindTokenSwap,
	discStepTokenSwap:     KindStepTokenSwap,
	discCropperTokenSwap:  KindCropperTokenSwap,
	discCremaTokenSwap:    KindCremaTokenSwap,
	discLifinityTokenSwap: KindLifinityTokenSwap,
	discRaydiumSwap:       KindRaydiumSwap,
	discSaberSwap:         KindSaberSwap,
	discMercurialExchange: KindMercurialExchange,
	discSerumSwap:         KindSerumSwap,
	discAldrinSwap:        KindAldrinSwap,
	discWhirlpoolSwap:     KindWhirlpoolSwap,
}

func decodeV3(disc uint64, ix *core.AdaptedInstruction) (*Decoded, Status) {
	kind, ok := v3Kinds[disc]
	if !ok {
		return nil, StatusUnrecognized
	}

	var (
		inAmount *uint64
		minOut   uint64
		feeBps   uint8
	)
	args := ix.Data[8:]

	switch kind {
	case KindWhirlpoolSwap:
		var a v3WhirlpoolArgs
		if err := decodeBorsh(&a, args); err != nil {
			return nil, StatusMalformed
		}
		inAmount, minOut, feeBps = a.InAmount, a.MinimumOutAmount, a.PlatformFeeBps
	case KindSerumSwap, KindAldrinSwap:
		var a v3SerumArgs
		if err := decodeBorsh(&a, args); err != nil {
			return nil, StatusMalformed
		}
		inAmount, minOut, feeBps = a.InAmount, a.MinimumOutAmount, a.PlatformFeeBps
	default:
		var a v3SwapArgs
		if err := decodeBorsh(&a, args); err != nil {
			return nil, StatusMalformed
		}
		inAmount, minOut, feeBps = a.InAmount, a.MinimumOutAmount, a.PlatformFeeBps
	}

	d := &Decoded{
		Version:        V3,
		Kind:           kind,
		OutAmount:      minOut,
		PlatformFeeBps: feeBps,
		RouteSteps:     1,
	}
	if inAmount != nil {
		d.InAmount = *inAmount
	}
	return d, StatusOK
}
