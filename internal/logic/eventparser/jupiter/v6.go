package jupiter

import (
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
)

// V6 IDL: https://github.com/jup-ag/jupiter-cpi/blob/main/idl.json

// 尾部参数：in_amount, quoted_out_amount, slippage_bps, platform_fee_bps
type v6ExactInTail struct {
	InAmount        uint64
	QuotedOutAmount uint64
	SlippageBps     uint16
	PlatformFeeBps  uint8
}

// 尾部参数：out_amount, quoted_in_amount, slippage_bps, platform_fee_bps
type v6ExactOutTail struct {
	OutAmount      uint64
	QuotedInAmount uint64
	SlippageBps    uint16
	PlatformFeeBps uint8
}

// 尾部参数：quoted_out_amount, slippage_bps, platform_fee_bps（输入量由 token ledger 决定）
type v6LedgerTail struct {
	QuotedOutAmount uint64
	SlippageBps     uint16
	PlatformFeeBps  uint8
}

const (
	v6ExactInTailSize  = 19
	v6ExactOutTailSize = 19
	v6LedgerTailSize   = 11
)

var (
	// route / route_with_token_ledger accounts:
	//  0 token_program, 1 user_transfer_authority, 2 user_source_token_account,
	//  3 user_destination_token_account, 4 destination_token_account(optional),
	//  5 destination_mint, 6 platform_fee_account(optional), [7 token_ledger], event_authority, program
	v6RouteLayout = func() accountLayout {
		l := emptyLayout(9)
		l.userAuthority, l.userSource, l.userDestination = 1, 2, 3
		l.destination, l.destinationMint, l.platformFee = 4, 5, 6
		return l
	}()
	v6RouteLedgerLayout = func() accountLayout {
		l := v6RouteLayout
		l.minAccounts = 10
		return l
	}()

	// exact_out_route accounts:
	//  0 token_program, 1 user_transfer_authority, 2 user_source_token_account,
	//  3 user_destination_token_account, 4 destination_token_account(optional),
	//  5 source_mint, 6 destination_mint, 7 platform_fee_account(optional),
	//  8 token_2022_program(optional), 9 event_authority, 10 program
	v6ExactOutLayout = func() accountLayout {
		l := emptyLayout(11)
		l.userAuthority, l.userSource, l.userDestination = 1, 2, 3
		l.destination, l.sourceMint, l.destinationMint, l.platformFee = 4, 5, 6, 7
		return l
	}()

	// shared_accounts_* accounts:
	//  0 token_program, 1 program_authority, 2 user_transfer_authority,
	//  3 source_token_account, 4 program_source_token_account,
	//  5 program_destination_token_account, 6 destination_token_account,
	//  7 source_mint, 8 destination_mint, 9 platform_fee_account(optional),
	//  10 token_2022_program(optional), [11 token_ledger], event_authority, program
	v6SharedLayout = func() accountLayout {
		l := emptyLayout(13)
		l.userAuthority, l.userSource = 2, 3
		l.programSource, l.programDestination, l.destination = 4, 5, 6
		l.sourceMint, l.destinationMint, l.platformFee = 7, 8, 9
		return l
	}()
	v6SharedLedgerLayout = func() accountLayout {
		l := v6SharedLayout
		l.minAccounts = 14
		return l
	}()
)

func decodeV6(disc uint64, ix *core.AdaptedInstruction) (*Decoded, Status) {
	switch disc {
	case discRoute:
		return decodeV6ExactIn(ix, KindRoute, 8, v6RouteLayout)
	case discSharedAccountsRoute:
		// shared accounts 多一个 u8 id
		return decodeV6ExactIn(ix, KindSharedAccountsRoute, 9, v6SharedLayout)
	case discExactOutRoute:
		return decodeV6ExactOut(ix, KindExactOutRoute, 8, v6ExactOutLayout)
	case discSharedAccountsExactOutRoute:
		return decodeV6ExactOut(ix, KindSharedAccountsExactOutRoute, 9, v6SharedLayout)
	case discRouteWithTokenLedger:
		return decodeV6Ledger(ix, KindRouteWithTokenLedger, 8, v6RouteLedgerLayout)
	case discSharedAccountsRouteWithTokenLedger:
		return decodeV6Ledger(ix, KindSharedAccountsRouteWithTokenLedger, 9, v6SharedLedgerLayout)
	case discSetTokenLedger, discClaim:
		// 已知的非 swap 指令
		return nil, StatusUnrecognized
	}
	return nil, StatusUnrecognized
}

func decodeV6ExactIn(ix *core.AdaptedInstruction, kind Kind, planOffset int, layout accountLayout) (*Decoded, Status) {
	var tail v6ExactInTail
	steps, ok := decodeTail(&tail, ix.Data, planOffset, v6ExactInTailSize)
	if !ok {
		return nil, StatusMalformed
	}
	roles, ok := resolveRoles(layout, ix.Accounts, consts.JupiterV6Program)
	if !ok {
		return nil, StatusMalformed
	}
	return &Decoded{
		Version:        V6,
		Kind:           kind,
		InAmount:       tail.InAmount,
		OutAmount:      tail.QuotedOutAmount,
		QuotedAmount:   tail.QuotedOutAmount,
		SlippageBps:    tail.SlippageBps,
		PlatformFeeBps: tail.PlatformFeeBps,
		RouteSteps:     steps,
		Roles:          roles,
	}, StatusOK
}

func decodeV6ExactOut(ix *core.AdaptedInstruction, kind Kind, planOffset int, layout accountLayout) (*Decoded, Status) {
	var tail v6ExactOutTail
	steps, ok := decodeTail(&tail, ix.Data, planOffset, v6ExactOutTailSize)
	if !ok {
		return nil, StatusMalformed
	}
	roles, ok := resolveRoles(layout, ix.Accounts, consts.JupiterV6Program)
	if !ok {
		return nil, StatusMalformed
	}
	return &Decoded{
		Version:        V6,
		Kind:           kind,
		ExactOut:       true,
		InAmount:       tail.QuotedInAmount,
		OutAmount:      tail.OutAmount,
		QuotedAmount:   tail.QuotedInAmount,
		SlippageBps:    tail.SlippageBps,
		PlatformFeeBps: tail.PlatformFeeBps,
		RouteSteps:     steps,
		Roles:          roles,
	}, StatusOK
}

func decodeV6Ledger(ix *core.AdaptedInstruction, kind Kind, planOffset int, layout accountLayout) (*Decoded, Status) {
	var tail v6LedgerTail
	steps, ok := decodeTail(&tail, ix.Data, planOffset, v6LedgerTailSize)
	if !ok {
		return nil, StatusMalformed
	}
	roles, ok := resolveRoles(layout, ix.Accounts, consts.JupiterV6Program)
	if !ok {
		return nil, StatusMalformed
	}
	return &Decoded{
		Version:        V6,
		Kind:           kind,
		OutAmount:      tail.QuotedOutAmount,
		QuotedAmount:   tail.QuotedOutAmount,
		SlippageBps:    tail.SlippageBps,
		PlatformFeeBps: tail.PlatformFeeBps,
		RouteSteps:     steps,
		Roles:          roles,
	}, StatusOK
}
