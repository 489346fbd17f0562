package common

import (
	"encoding/binary"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/logger"
)

// 合约源代码:
// SplToken: https://github.com/solana-program/token/blob/main/program/src/instruction.rs
// Token2022: https://github.com/solana-program/token-2022

// ParseTransferInstruction 解析 Transfer / TransferChecked 指令。
// 非 SPL Token 程序、非转账指令或数据不完整时返回 false。
func ParseTransferInstruction(ctx *ParserContext, ix *core.AdaptedInstruction) (*core.TokenTransfer, bool) {
	if ix.Malformed || !consts.IsSPLTokenProgram(ix.ProgramID) {
		return nil, false
	}
	if len(ix.Data) < 9 || len(ix.Accounts) < 3 {
		return nil, false
	}

	switch ix.Data[0] {
	// Transfer: [0]=instr, [1:9]=amount
	// accounts = [src_account, dest_account, authority_wallet]
	case byte(sdktoken.InstructionTransfer):
		src, dst := ix.Accounts[0], ix.Accounts[1]
		info, ok := ctx.Balances[src]
		if !ok {
			info, ok = ctx.Balances[dst]
		}
		if !ok {
			logger.Warnf("[Token::Transfer] tx=%s: mint unknown, src=%s dest=%s ixIndex=%d innerIndex=%d",
				ctx.TxHashString(), src, dst, ix.IxIndex, ix.InnerIndex)
			return nil, false
		}
		return &core.TokenTransfer{
			IxIndex:     ix.IxIndex,
			InnerIndex:  ix.InnerIndex,
			StackHeight: ix.StackHeight,
			Mint:        info.Token,
			Source:      src,
			Destination: dst,
			Authority:   ix.Accounts[2],
			Amount:      binary.LittleEndian.Uint64(ix.Data[1:9]),
			Decimals:    info.Decimals,
			Hop:         -1,
		}, true

	// TransferChecked: [0]=instr, [1:9]=amount, [9]=decimals
	// accounts = [src_account, mint, dest_account, authority_wallet]
	case byte(sdktoken.InstructionTransferChecked):
		if len(ix.Data) < 10 || len(ix.Accounts) < 4 {
			return nil, false
		}
		mint := ix.Accounts[1]
		if info, ok := ctx.Balances[ix.Accounts[0]]; ok && info.Token != mint {
			logger.Warnf("[Token::TransferChecked] tx=%s: mint mismatch, balance.token=%s, ix.mint=%s (account=%s)",
				ctx.TxHashString(), info.Token, mint, ix.Accounts[0])
		}
		return &core.TokenTransfer{
			IxIndex:     ix.IxIndex,
			InnerIndex:  ix.InnerIndex,
			StackHeight: ix.StackHeight,
			Mint:        mint,
			Source:      ix.Accounts[0],
			Destination: ix.Accounts[2],
			Authority:   ix.Accounts[3],
			Amount:      binary.LittleEndian.Uint64(ix.Data[1:9]),
			Decimals:    ix.Data[9],
			Hop:         -1,
		}, true
	}
	return nil, false
}
