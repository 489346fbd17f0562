package enrich

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

const impactPlaces = 6

// Route 同一 (输入 mint, 输出 mint, AMM 路径) 在区块内的汇总
type Route struct {
	ID          string
	InputMint   types.Pubkey
	OutputMint  types.Pubkey
	InAmount    decimal.Decimal
	OutAmount   decimal.Decimal
	PriceImpact decimal.Decimal
	MarketInfo  types.Pubkey // 第一跳 AMM 程序，无 hop 时为零值
}

type routeAcc struct {
	route *Route

	// exact-in 报价的是输出量，exact-out 报价的是输入量，分开累计
	exactInQuoted  decimal.Decimal
	exactInActual  decimal.Decimal
	exactOutQuoted decimal.Decimal
	exactOutActual decimal.Decimal
}

// RouteID base58(sha256(inputMint ‖ outputMint ‖ ammProgram...))
func RouteID(input, output types.Pubkey, programs []types.Pubkey) string {
	h := sha256.New()
	h.Write(input[:])
	h.Write(output[:])
	for _, p := range programs {
		h.Write(p[:])
	}
	return base58.Encode(h.Sum(nil))
}

func (c *Collector) observeRoute(swap *core.Swap) {
	programs := make([]types.Pubkey, 0, len(swap.Hops))
	for _, hop := range swap.Hops {
		programs = append(programs, hop.Program)
	}
	id := RouteID(swap.InputMint, swap.OutputMint, programs)

	acc, ok := c.routes[id]
	if !ok {
		acc = &routeAcc{route: &Route{
			ID:         id,
			InputMint:  swap.InputMint,
			OutputMint: swap.OutputMint,
		}}
		if len(programs) > 0 {
			acc.route.MarketInfo = programs[0]
		}
		c.routes[id] = acc
		c.routeIDs = append(c.routeIDs, id)
	}

	acc.route.InAmount = acc.route.InAmount.Add(rawAmount(swap.InputAmount))
	acc.route.OutAmount = acc.route.OutAmount.Add(rawAmount(swap.OutputAmount))

	if swap.QuotedAmount == 0 {
		return
	}
	if swap.ExactOut {
		acc.exactOutQuoted = acc.exactOutQuoted.Add(rawAmount(swap.QuotedAmount))
		acc.exactOutActual = acc.exactOutActual.Add(rawAmount(swap.InputAmount))
	} else {
		acc.exactInQuoted = acc.exactInQuoted.Add(rawAmount(swap.QuotedAmount))
		acc.exactInActual = acc.exactInActual.Add(rawAmount(swap.OutputAmount))
	}
}

// priceImpact exact-in 为 1 - 实际输出/报价输出，exact-out 为 实际输入/报价输入 - 1，
// 取两者较大值，负值（优于报价）记为 0
func (a *routeAcc) priceImpact() decimal.Decimal {
	one := decimal.NewFromInt(1)
	impact := decimal.Zero
	if a.exactInQuoted.IsPositive() {
		impact = decimal.Max(impact, one.Sub(a.exactInActual.DivRound(a.exactInQuoted, impactPlaces+2)))
	}
	if a.exactOutQuoted.IsPositive() {
		impact = decimal.Max(impact, a.exactOutActual.DivRound(a.exactOutQuoted, impactPlaces+2).Sub(one))
	}
	return impact.Round(impactPlaces)
}

// Routes 按首次出现顺序返回
func (c *Collector) Routes() []*Route {
	out := make([]*Route, 0, len(c.routeIDs))
	for _, id := range c.routeIDs {
		acc := c.routes[id]
		acc.route.PriceImpact = acc.priceImpact()
		out = append(out, acc.route)
	}
	return out
}
