package consts

import "jup-indexer-sol/pkg/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr          = "11111111111111111111111111111111"
	TokenProgramStr           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramStr = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramIdStr = "ComputeBudget111111111111111111111111111111"

	// Jupiter 聚合器，三个版本指令布局互不兼容
	JupiterV3ProgramStr = "JUP3c2Uh3WA4Ng34tw6kPd2G4C5BB21Xo36Je1s32Ph"
	JupiterV4ProgramStr = "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"
	JupiterV6ProgramStr = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

	// USD 计价基础报价币（具有稳定市场价格）
	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	// 常见 SOL 衍生资产
	JitoSOLMintStr = "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn"
	MSOLMintStr    = "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So"
	JupSOLMintStr  = "jupSoLaHXQiZZTSfEWMTRRgpnyFm8f6sZdosWBjx93v"
	BSOLMintStr    = "bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1"
)

var (
	// Programs
	SystemProgram          = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram           = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022       = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	ComputeBudgetProgram   = types.PubkeyFromBase58(ComputeBudgetProgramIdStr)

	// Jupiter
	JupiterV3Program = types.PubkeyFromBase58(JupiterV3ProgramStr)
	JupiterV4Program = types.PubkeyFromBase58(JupiterV4ProgramStr)
	JupiterV6Program = types.PubkeyFromBase58(JupiterV6ProgramStr)

	// 稳定报价币（USD 估值）
	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint = types.PubkeyFromBase58(USDCMintStr)
	USDTMint = types.PubkeyFromBase58(USDTMintStr)

	// SOL 衍生资产
	JitoSOLMint = types.PubkeyFromBase58(JitoSOLMintStr)
	MSOLMint    = types.PubkeyFromBase58(MSOLMintStr)
	JupSOLMint  = types.PubkeyFromBase58(JupSOLMintStr)
	BSOLMint    = types.PubkeyFromBase58(BSOLMintStr)
)

// IsSPLToken 判断 token balance 中的 ProgramId 是否为标准 SPL Token 程序（v1 / 2022）
func IsSPLToken(programId string) bool {
	return programId == TokenProgramStr || programId == TokenProgram2022Str
}

func IsSPLTokenProgram(programId types.Pubkey) bool {
	return programId == TokenProgram || programId == TokenProgram2022
}

func IsJupiterProgram(programId types.Pubkey) bool {
	return programId == JupiterV3Program || programId == JupiterV4Program || programId == JupiterV6Program
}

// IsInfraProgram 非 AMM 的基础设施程序，出现在 Jupiter inner 指令中时不视为一跳
func IsInfraProgram(programId types.Pubkey) bool {
	switch programId {
	case SystemProgram, TokenProgram, TokenProgram2022, AssociatedTokenProgram, ComputeBudgetProgram:
		return true
	}
	return false
}
