package common

import (
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/types"
)

// PreScanInitAccountBalances 扫描指令列表中 InitializeMint / InitializeAccount 系指令，补充 ctx.Balances。
// 交易内创建又关闭的临时账户（典型如 WSOL 中转账户）不会出现在 pre/post token balances 中，
// 只能从初始化指令还原其 mint 与 owner。
func PreScanInitAccountBalances(ctx *ParserContext, instrs []*core.AdaptedInstruction) {
	for _, ix := range instrs {
		if ix.Malformed || !consts.IsSPLTokenProgram(ix.ProgramID) || len(ix.Data) == 0 {
			continue
		}

		switch ix.Data[0] {
		case byte(sdktoken.InstructionInitializeMint),
			byte(sdktoken.InstructionInitializeMint2):
			tryFillMintDecimalsFromInitMint(ctx, ix)

		case byte(sdktoken.InstructionInitializeAccount),
			byte(sdktoken.InstructionInitializeAccount2),
			byte(sdktoken.InstructionInitializeAccount3):
			tryFillBalanceFromInitAccount(ctx, ix)
		}
	}
}

func tryFillMintDecimalsFromInitMint(ctx *ParserContext, ix *core.AdaptedInstruction) {
	// Layout: data = [instr, decimals, ...], accounts[0] = mint
	if len(ix.Data) < 2 || len(ix.Accounts) == 0 {
		return
	}
	ctx.Tx.AddTokenDecimals(ix.Accounts[0], ix.Data[1])
}

// tryFillBalanceFromInitAccount 尝试从初始化账户指令中提取 TokenAccount → Token (mint) → Owner 映射。
// 仅当 ctx.Balances 中尚未包含该 TokenAccount 时生效。
func tryFillBalanceFromInitAccount(ctx *ParserContext, ix *core.AdaptedInstruction) {
	var mint, tokenAccount, owner types.Pubkey

	switch ix.Data[0] {
	case byte(sdktoken.InstructionInitializeAccount):
		// Layout: accounts = [tokenAccount, mint, owner]
		if len(ix.Accounts) < 3 {
			return
		}
		tokenAccount = ix.Accounts[0]
		mint = ix.Accounts[1]
		owner = ix.Accounts[2]

	case byte(sdktoken.InstructionInitializeAccount2), byte(sdktoken.InstructionInitializeAccount3):
		// Layout: accounts = [tokenAccount, mint], owner in Data[1:33]
		if len(ix.Accounts) < 2 || len(ix.Data) < 33 {
			return
		}
		tokenAccount = ix.Accounts[0]
		mint = ix.Accounts[1]
		owner, _ = types.PubkeyFromBytes(ix.Data[1:33])

	default:
		return
	}

	if _, exists := ctx.Balances[tokenAccount]; exists {
		return
	}

	decimals, ok := ctx.Tx.GetDecimalsByMint(mint)
	if !ok {
		meta, known := consts.WellKnownTokens[mint]
		if !known {
			logger.Warnf("[PreScanInitAccount::tryFillBalance] tx=%s: missing decimals for mint=%s (tokenAccount=%s), ixIndex=%d innerIndex=%d",
				ctx.TxHashString(), mint, tokenAccount, ix.IxIndex, ix.InnerIndex)
		}
		decimals = meta.Decimals
	}

	ctx.Balances[tokenAccount] = &core.TokenBalance{
		Decimals:       decimals,
		TokenAccount:   tokenAccount,
		Token:          mint,
		PostOwner:      owner,
		TokenProgramID: ix.ProgramID,
	}
}
