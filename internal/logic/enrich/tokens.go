package enrich

import (
	"math/big"

	"github.com/shopspring/decimal"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

const priceScale = 18

// Token swap 涉及的 mint。TotalVolume 为区块内作为输入或输出的原始数量之和。
type Token struct {
	Mint        types.Pubkey
	Symbol      string
	Name        string
	Decimals    uint8
	TotalVolume decimal.Decimal
	PriceUSD    decimal.Decimal
}

type pairKey struct {
	base  types.Pubkey
	quote types.Pubkey
}

// pairVolume base / quote 的累计成交量（已按精度换算）
type pairVolume struct {
	base  decimal.Decimal
	quote decimal.Decimal
}

// quoteOrder 估价时依次尝试的计价币
var quoteOrder = []types.Pubkey{consts.USDCMint, consts.USDTMint, consts.WSOLMint}

func rawAmount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// uiAmount 按精度换算，如 1_500_000 (6 位) → 1.5
func uiAmount(v uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals))
}

func (c *Collector) token(mint types.Pubkey, decimals uint8) *Token {
	if t, ok := c.tokens[mint]; ok {
		return t
	}
	t := &Token{Mint: mint, Decimals: decimals}
	if meta, ok := consts.WellKnownTokens[mint]; ok {
		t.Symbol, t.Name = meta.Symbol, meta.Name
	}
	c.tokens[mint] = t
	c.mints = append(c.mints, mint)
	return t
}

func (c *Collector) observeTokens(tx *core.AdaptedTx, swap *core.Swap) {
	in := c.token(swap.InputMint, swap.InputDecimals)
	in.TotalVolume = in.TotalVolume.Add(rawAmount(swap.InputAmount))

	// 中间 mint 只登记，不计成交量
	for _, mint := range swap.Route {
		decimals, ok := tx.GetDecimalsByMint(mint)
		if !ok {
			decimals = consts.WellKnownTokens[mint].Decimals
		}
		c.token(mint, decimals)
	}

	out := c.token(swap.OutputMint, swap.OutputDecimals)
	out.TotalVolume = out.TotalVolume.Add(rawAmount(swap.OutputAmount))

	c.observeQuote(swap)
}

// observeQuote 记录与计价币直接成交的数量，用于区块内估价
func (c *Collector) observeQuote(swap *core.Swap) {
	quote, ok := consts.ChooseQuote(swap.InputMint, swap.OutputMint)
	if !ok || swap.InputAmount == 0 || swap.OutputAmount == 0 {
		return
	}

	var baseUI, quoteUI decimal.Decimal
	var base types.Pubkey
	if quote == swap.InputMint {
		// 用户支付 quote，获得 base
		base = swap.OutputMint
		baseUI = uiAmount(swap.OutputAmount, swap.OutputDecimals)
		quoteUI = uiAmount(swap.InputAmount, swap.InputDecimals)
	} else {
		base = swap.InputMint
		baseUI = uiAmount(swap.InputAmount, swap.InputDecimals)
		quoteUI = uiAmount(swap.OutputAmount, swap.OutputDecimals)
	}

	key := pairKey{base: base, quote: quote}
	acc, ok := c.quotes[key]
	if !ok {
		acc = &pairVolume{}
		c.quotes[key] = acc
	}
	acc.base = acc.base.Add(baseUI)
	acc.quote = acc.quote.Add(quoteUI)
}

// derivePrices 稳定币为 1 USD；WSOL 由区块内 WSOL/稳定币成交量加权得出；
// 其余 mint 依次尝试 USDC、USDT、WSOL 计价。无法估价的 mint 不出现在结果中。
func (c *Collector) derivePrices() map[types.Pubkey]decimal.Decimal {
	prices := make(map[types.Pubkey]decimal.Decimal, len(c.mints))
	for mint := range consts.StableMints {
		prices[mint] = decimal.NewFromInt(1)
	}
	if p, ok := c.pairPrice(consts.WSOLMint, prices); ok {
		prices[consts.WSOLMint] = p
	}
	for _, mint := range c.mints {
		if _, ok := prices[mint]; ok {
			continue
		}
		if p, ok := c.pairPrice(mint, prices); ok {
			prices[mint] = p
		}
	}
	return prices
}

func (c *Collector) pairPrice(base types.Pubkey, prices map[types.Pubkey]decimal.Decimal) (decimal.Decimal, bool) {
	for _, quote := range quoteOrder {
		quotePrice, ok := prices[quote]
		if !ok {
			continue
		}
		acc, ok := c.quotes[pairKey{base: base, quote: quote}]
		if !ok || !acc.base.IsPositive() {
			continue
		}
		return acc.quote.Mul(quotePrice).DivRound(acc.base, priceScale), true
	}
	return decimal.Zero, false
}

// Tokens 按首次出现顺序返回，并填充区块内估价
func (c *Collector) Tokens() []*Token {
	prices := c.derivePrices()
	out := make([]*Token, 0, len(c.mints))
	for _, mint := range c.mints {
		t := c.tokens[mint]
		t.PriceUSD = prices[mint]
		out = append(out, t)
	}
	return out
}
