package jupiter

import (
	"encoding/binary"

	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
)

// V4 route 与 V6 route 同名，但参数为单个 SwapLeg 而非 route_plan：
// [disc][swap_leg][in_amount u64][quoted_out_amount u64][slippage_bps u16][platform_fee_bps u8]
//
// exact output 系列直接调用单个 AMM：
// [disc][out_amount u64][in_amount_with_slippage {amount u64, slippage_bps u16}][platform_fee_bps u8]
type v4ExactOutArgs struct {
	OutAmount      uint64
	InAmount       uint64
	SlippageBps    uint16
	PlatformFeeBps uint8
}

const v4ExactOutArgsSize = 19

var (
	// route accounts: 0 token_program, 1 user_transfer_authority, 2 destination_token_account
	v4RouteLayout = func() accountLayout {
		l := emptyLayout(3)
		l.userAuthority, l.destination = 1, 2
		return l
	}()

	// raydium_swap_exact_output: ... 15 user_source_token_account,
	// 16 user_destination_token_account, 17 user_source_owner
	v4RaydiumExactOutLayout = func() accountLayout {
		l := emptyLayout(18)
		l.userSource, l.userDestination, l.userAuthority = 15, 16, 17
		return l
	}()

	// raydium_clmm_swap_exact_output: 0 swap_program, 1 payer, 2 amm_config, 3 pool_state,
	// 4 input_token_account, 5 output_token_account, ...
	v4RaydiumClmmExactOutLayout = func() accountLayout {
		l := emptyLayout(6)
		l.userAuthority, l.userSource, l.userDestination = 1, 4, 5
		return l
	}()

	// whirlpool_swap_exact_output: 0 swap_program, 1 token_program, 2 token_authority, ...
	v4WhirlpoolExactOutLayout = func() accountLayout {
		l := emptyLayout(3)
		l.userAuthority = 2
		return l
	}()
)

func decodeV4(disc uint64, ix *core.AdaptedInstruction) (*Decoded, Status) {
	switch disc {
	case discRoute:
		return decodeV4Route(ix)
	case discRaydiumSwapExactOutput:
		return decodeV4ExactOut(ix, KindRaydiumSwapExactOutput, v4RaydiumExactOutLayout)
	case discRaydiumClmmSwapExactOutput:
		return decodeV4ExactOut(ix, KindRaydiumClmmSwapExactOutput, v4RaydiumClmmExactOutLayout)
	case discWhirlpoolSwapExactOutput:
		return decodeV4ExactOut(ix, KindWhirlpoolSwapExactOutput, v4WhirlpoolExactOutLayout)
	}
	return nil, StatusUnrecognized
}

func decodeV4Route(ix *core.AdaptedInstruction) (*Decoded, Status) {
	if len(ix.Data) < 8+2+v6ExactInTailSize {
		return nil, StatusMalformed
	}
	// V6 的 route_plan 与 V4 共用 discriminator，先确认 swap_leg 结构
	if !validV4SwapLeg(ix.Data[8 : len(ix.Data)-v6ExactInTailSize]) {
		return nil, StatusMalformed
	}
	var tail v6ExactInTail
	if err := decodeBorsh(&tail, ix.Data[len(ix.Data)-v6ExactInTailSize:]); err != nil {
		return nil, StatusMalformed
	}
	roles, ok := resolveRoles(v4RouteLayout, ix.Accounts, consts.JupiterV4Program)
	if !ok {
		return nil, StatusMalformed
	}
	return &Decoded{
		Version:        V4,
		Kind:           KindRoute,
		InAmount:       tail.InAmount,
		OutAmount:      tail.QuotedOutAmount,
		QuotedAmount:   tail.QuotedOutAmount,
		SlippageBps:    tail.SlippageBps,
		PlatformFeeBps: tail.PlatformFeeBps,
		RouteSteps:     1,
		Roles:          roles,
	}, StatusOK
}

// SwapLeg 枚举：0 Chain{Vec<SwapLeg>}，1 Split{Vec<SplitLeg{percent u8, SwapLeg}>}，2 Swap{Swap}。
// Swap 各变体为 1 字节 tag 加至多 1 字节参数（side / a_to_b 等），
// 嵌套子腿只校验数量与剩余长度是否相容。
func validV4SwapLeg(leg []byte) bool {
	if len(leg) < 2 {
		return false
	}
	switch leg[0] {
	case 2:
		return len(leg) <= 3
	case 0, 1:
		if len(leg) < 5 {
			return false
		}
		minLeg := 2
		if leg[0] == 1 {
			minLeg = 3
		}
		count := binary.LittleEndian.Uint32(leg[1:5])
		return count > 0 && uint64(count)*uint64(minLeg) <= uint64(len(leg)-5)
	}
	return false
}

func decodeV4ExactOut(ix *core.AdaptedInstruction, kind Kind, layout accountLayout) (*Decoded, Status) {
	if len(ix.Data) < 8+v4ExactOutArgsSize {
		return nil, StatusMalformed
	}
	var args v4ExactOutArgs
	if err := decodeBorsh(&args, ix.Data[8:8+v4ExactOutArgsSize]); err != nil {
		return nil, StatusMalformed
	}
	roles, ok := resolveRoles(layout, ix.Accounts, consts.JupiterV4Program)
	if !ok {
		return nil, StatusMalformed
	}
	return &Decoded{
		Version:        V4,
		Kind:           kind,
		ExactOut:       true,
		InAmount:       args.InAmount,
		OutAmount:      args.OutAmount,
		QuotedAmount:   args.InAmount,
		SlippageBps:    args.SlippageBps,
		PlatformFeeBps: args.PlatformFeeBps,
		RouteSteps:     1,
		Roles:          roles,
	}, StatusOK
}
