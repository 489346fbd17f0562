package consts

import "jup-indexer-sol/pkg/types"

const (
	WSOLDecimals = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

// TokenMeta 常见 token 的展示信息，链上 metadata 不在交易数据中，只能靠静态表补全
type TokenMeta struct {
	Symbol   string
	Name     string
	Decimals uint8
}

var WellKnownTokens = map[types.Pubkey]TokenMeta{
	WSOLMint:    {Symbol: "SOL", Name: "Wrapped SOL", Decimals: WSOLDecimals},
	USDCMint:    {Symbol: "USDC", Name: "USD Coin", Decimals: USDCDecimals},
	USDTMint:    {Symbol: "USDT", Name: "USDT", Decimals: USDTDecimals},
	JitoSOLMint: {Symbol: "JitoSOL", Name: "Jito Staked SOL", Decimals: 9},
	MSOLMint:    {Symbol: "mSOL", Name: "Marinade staked SOL", Decimals: 9},
	JupSOLMint:  {Symbol: "JupSOL", Name: "Jupiter Staked SOL", Decimals: 9},
	BSOLMint:    {Symbol: "bSOL", Name: "BlazeStake Staked SOL", Decimals: 9},
}

// StableMints 视为 1 USD 的稳定币
var StableMints = map[types.Pubkey]struct{}{
	USDCMint: {},
	USDTMint: {},
}

// QuotePriority 定义系统内置 quote token 的优先级（数值越小优先级越高）。
var QuotePriority = map[types.Pubkey]int{
	USDCMint: 1,
	USDTMint: 2,
	WSOLMint: 3,
}

// ChooseQuote 返回 a、b 中更适合作为计价币的一方，双方都不是 quote 时返回 false
func ChooseQuote(a, b types.Pubkey) (quote types.Pubkey, ok bool) {
	pa, oka := QuotePriority[a]
	pb, okb := QuotePriority[b]

	switch {
	case oka && okb:
		if pa < pb {
			return a, true
		}
		if pb < pa {
			return b, true
		}
	case oka:
		return a, true
	case okb:
		return b, true
	}

	return types.Pubkey{}, false
}
