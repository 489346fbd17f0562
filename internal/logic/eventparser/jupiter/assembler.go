package jupiter

import (
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/pkg/types"
)

// Assemble 合并解码结果与转账轨迹，还原一次 swap。
//
//   - 输入：第一条来源账户属于用户的转账
//   - 输出：最后一条目标账户属于用户的转账，不限 mint（环形套利 X→Y→X 输出仍为 X）
//   - route：输入与输出之间经过的其它 mint，按首次出现顺序
//   - 手续费：目标为平台手续费账户的转账之和，无则为 0
//
// 没有转账或无法匹配输入输出时返回 false，不视为错误。
func Assemble(ctx *common.ParserContext, outer *core.AdaptedInstruction, decoded *Decoded, trace *Trace) (*core.Swap, bool) {
	if decoded == nil || trace == nil || len(trace.Transfers) == 0 {
		return nil, false
	}
	transfers := trace.Transfers
	owners := newUserOwners(ctx.Tx, decoded.Roles)

	inIdx := -1
	for i, t := range transfers {
		if owners.ownsSource(ctx.Balances, t) {
			inIdx = i
			break
		}
	}
	if inIdx < 0 {
		return nil, false
	}
	input := transfers[inIdx]

	outIdx := -1
	for i := len(transfers) - 1; i > inIdx; i-- {
		t := transfers[i]
		if owners.ownsDestination(ctx.Balances, t) {
			outIdx = i
			break
		}
	}
	if outIdx < 0 {
		return nil, false
	}
	output := transfers[outIdx]

	var feeAmount uint64
	if fee := decoded.Roles.PlatformFee; !fee.IsZero() {
		for _, t := range transfers {
			if t.Destination == fee {
				feeAmount += t.Amount
			}
		}
	}

	return &core.Swap{
		Signature:      ctx.Tx.Signature,
		Slot:           ctx.Tx.TxCtx.Slot,
		BlockTime:      ctx.Tx.TxCtx.BlockTime,
		TxIndex:        ctx.TxIndex,
		IxIndex:        outer.IxIndex,
		Protocol:       decoded.Version.String(),
		Kind:           decoded.Kind.String(),
		ExactOut:       decoded.ExactOut,
		User:           owners.user,
		InputMint:      input.Mint,
		OutputMint:     output.Mint,
		InputAmount:    input.Amount,
		OutputAmount:   output.Amount,
		InputDecimals:  input.Decimals,
		OutputDecimals: output.Decimals,
		Route:          intermediateMints(transfers[inIdx+1:outIdx], input.Mint, output.Mint),
		FeeAmount:      feeAmount,
		QuotedAmount:   decoded.QuotedAmount,
		Hops:           trace.Hops,
	}, true
}

func intermediateMints(between []*core.TokenTransfer, in, out types.Pubkey) []types.Pubkey {
	var route []types.Pubkey
	seen := map[types.Pubkey]struct{}{in: {}, out: {}}
	for _, t := range between {
		if _, ok := seen[t.Mint]; ok {
			continue
		}
		seen[t.Mint] = struct{}{}
		route = append(route, t.Mint)
	}
	return route
}

// userOwners 判定 token account 是否属于发起 swap 的用户
type userOwners struct {
	user      types.Pubkey
	feePayer  types.Pubkey
	authority types.Pubkey // 指令声明的 user_transfer_authority，可能为零值
	roles     AccountRoles
}

// newUserOwners 用户优先取签名的 user_transfer_authority，否则为 fee payer
func newUserOwners(tx *core.AdaptedTx, roles AccountRoles) *userOwners {
	u := &userOwners{
		user:      tx.FeePayer,
		feePayer:  tx.FeePayer,
		authority: roles.UserAuthority,
		roles:     roles,
	}
	if !roles.UserAuthority.IsZero() && tx.IsSigner(roles.UserAuthority) {
		u.user = roles.UserAuthority
	}
	return u
}

func (u *userOwners) isOwner(pk types.Pubkey) bool {
	if pk.IsZero() {
		return false
	}
	return pk == u.feePayer || pk == u.authority
}

func (u *userOwners) ownsAccount(balances map[types.Pubkey]*core.TokenBalance, account types.Pubkey) bool {
	if account.IsZero() {
		return false
	}
	switch account {
	case u.roles.UserSource, u.roles.UserDestination, u.roles.Destination:
		return true
	}
	if bal, ok := balances[account]; ok {
		if u.isOwner(bal.PostOwner) || (bal.HasPreOwner && u.isOwner(bal.PreOwner)) {
			return true
		}
	}
	return false
}

// ownsSource 输入侧额外接受以用户身份签名的转账（临时账户可能不在余额表中）
func (u *userOwners) ownsSource(balances map[types.Pubkey]*core.TokenBalance, t *core.TokenTransfer) bool {
	return u.ownsAccount(balances, t.Source) || u.isOwner(t.Authority)
}

func (u *userOwners) ownsDestination(balances map[types.Pubkey]*core.TokenBalance, t *core.TokenTransfer) bool {
	return u.ownsAccount(balances, t.Destination)
}
