package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/testutil"
	"jup-indexer-sol/pkg/types"
)

var (
	user   = testutil.Key(1)
	memeX  = testutil.Key(2)
	vaultA = testutil.Key(3)
	vaultB = testutil.Key(4)
	amm    = testutil.Key(40)
)

func transfer(mint, src, dst types.Pubkey, amount uint64) *core.TokenTransfer {
	return &core.TokenTransfer{Mint: mint, Source: src, Destination: dst, Amount: amount}
}

func txWithVaults(postA, postB uint64) *core.AdaptedTx {
	return &core.AdaptedTx{
		Balances: map[types.Pubkey]*core.TokenBalance{
			vaultA: {TokenAccount: vaultA, Token: consts.USDCMint, PostBalance: postA},
			vaultB: {TokenAccount: vaultB, Token: memeX, PostBalance: postB},
		},
		TokenDecimals: []core.TokenDecimals{{Token: consts.USDCMint, Decimals: 6}, {Token: memeX, Decimals: 9}},
	}
}

// USDC → X，单跳
func buySwap(usdcIn, xOut, quoted uint64) *core.Swap {
	hop := &core.Hop{
		Program: amm,
		In:      transfer(consts.USDCMint, testutil.Key(10), vaultA, usdcIn),
		Out:     transfer(memeX, vaultB, testutil.Key(11), xOut),
	}
	return &core.Swap{
		User:           user,
		InputMint:      consts.USDCMint,
		OutputMint:     memeX,
		InputAmount:    usdcIn,
		OutputAmount:   xOut,
		InputDecimals:  6,
		OutputDecimals: 9,
		QuotedAmount:   quoted,
		Hops:           []*core.Hop{hop},
	}
}

func TestPools(t *testing.T) {
	c := NewCollector(1700000000)
	c.AddTx(txWithVaults(100, 200), []*core.Swap{buySwap(10, 20, 0)})
	c.AddTx(txWithVaults(110, 180), []*core.Swap{buySwap(10, 20, 0)})

	pools := c.Pools()
	require.Len(t, pools, 1)
	p := pools[0]
	assert.Equal(t, PoolID(amm, memeX, consts.USDCMint), p.ID)
	assert.Equal(t, PoolID(amm, consts.USDCMint, memeX), p.ID, "mint order does not matter")
	assert.Equal(t, amm, p.Program)
	assert.Equal(t, -1, p.MintA.Compare(p.MintB))
	assert.Equal(t, "0", p.FeeRate)
	assert.Equal(t, int64(1700000000), p.CreatedAt)

	// 最新一笔交易的 vault 余额生效
	if p.MintA == consts.USDCMint {
		assert.Equal(t, uint64(110), p.AmountA)
		assert.Equal(t, uint64(180), p.AmountB)
	} else {
		assert.Equal(t, uint64(180), p.AmountA)
		assert.Equal(t, uint64(110), p.AmountB)
	}
}

func TestPoolsSkipIncompleteHop(t *testing.T) {
	s := buySwap(10, 20, 0)
	s.Hops[0].Out = nil
	c := NewCollector(1)
	c.AddTx(txWithVaults(1, 1), []*core.Swap{s})
	assert.Empty(t, c.Pools())
}

func TestTokensVolumeAndPrice(t *testing.T) {
	c := NewCollector(1)
	// 2 USDC 买 1 X，再 4 USDC 买 1 X，加权价格 3
	c.AddTx(txWithVaults(0, 0), []*core.Swap{
		buySwap(2_000_000, 1_000_000_000, 0),
		buySwap(4_000_000, 1_000_000_000, 0),
	})

	tokens := c.Tokens()
	require.Len(t, tokens, 2)

	usdc, x := tokens[0], tokens[1]
	assert.Equal(t, consts.USDCMint, usdc.Mint)
	assert.Equal(t, "USDC", usdc.Symbol)
	assert.Equal(t, uint8(6), usdc.Decimals)
	assert.Equal(t, "6000000", usdc.TotalVolume.String())
	assert.Equal(t, "1", usdc.PriceUSD.String())

	assert.Equal(t, memeX, x.Mint)
	assert.Empty(t, x.Symbol)
	assert.Equal(t, "2000000000", x.TotalVolume.String())
	assert.Equal(t, "3", x.PriceUSD.String())
}

func TestTokensPricedThroughWSOL(t *testing.T) {
	c := NewCollector(1)
	// 1 SOL 卖出 150 USDC
	solSell := &core.Swap{
		InputMint: consts.WSOLMint, OutputMint: consts.USDCMint,
		InputAmount: 1_000_000_000, OutputAmount: 150_000_000,
		InputDecimals: 9, OutputDecimals: 6,
	}
	// 0.5 SOL 买 1000 X
	memeBuy := &core.Swap{
		InputMint: consts.WSOLMint, OutputMint: memeX,
		InputAmount: 500_000_000, OutputAmount: 1000_000_000,
		InputDecimals: 9, OutputDecimals: 6,
	}
	c.AddTx(&core.AdaptedTx{}, []*core.Swap{memeBuy, solSell})

	prices := map[types.Pubkey]string{}
	for _, tok := range c.Tokens() {
		prices[tok.Mint] = tok.PriceUSD.String()
	}
	assert.Equal(t, "150", prices[consts.WSOLMint])
	assert.Equal(t, "0.075", prices[memeX])
	assert.Equal(t, "1", prices[consts.USDCMint])
}

func TestTokensUnpriced(t *testing.T) {
	other := testutil.Key(50)
	c := NewCollector(1)
	c.AddTx(&core.AdaptedTx{}, []*core.Swap{{
		InputMint: memeX, OutputMint: other, InputAmount: 5, OutputAmount: 7, Route: []types.Pubkey{consts.JitoSOLMint},
	}})

	tokens := c.Tokens()
	require.Len(t, tokens, 3)
	assert.Equal(t, []types.Pubkey{memeX, consts.JitoSOLMint, other}, []types.Pubkey{tokens[0].Mint, tokens[1].Mint, tokens[2].Mint})
	for _, tok := range tokens {
		assert.Equal(t, "0", tok.PriceUSD.String())
	}
	assert.Equal(t, "0", tokens[1].TotalVolume.String())
	assert.Equal(t, uint8(9), tokens[1].Decimals)
	assert.Equal(t, "JitoSOL", tokens[1].Symbol)
}

func TestRoutes(t *testing.T) {
	c := NewCollector(1)
	// 报价 1000，实际 950 与 990：impact = 1 - 1940/2000 = 0.03
	c.AddTx(txWithVaults(0, 0), []*core.Swap{buySwap(10, 950, 1000), buySwap(10, 990, 1000)})

	direct := &core.Swap{InputMint: consts.USDCMint, OutputMint: memeX, InputAmount: 1, OutputAmount: 1}
	c.AddTx(&core.AdaptedTx{}, []*core.Swap{direct})

	routes := c.Routes()
	require.Len(t, routes, 2)

	r := routes[0]
	assert.Equal(t, RouteID(consts.USDCMint, memeX, []types.Pubkey{amm}), r.ID)
	assert.Equal(t, "20", r.InAmount.String())
	assert.Equal(t, "1940", r.OutAmount.String())
	assert.Equal(t, "0.03", r.PriceImpact.String())
	assert.Equal(t, amm, r.MarketInfo)

	assert.NotEqual(t, r.ID, routes[1].ID)
	assert.True(t, routes[1].MarketInfo.IsZero())
	assert.Equal(t, "0", routes[1].PriceImpact.String())
}

func TestRoutePriceImpactExactOut(t *testing.T) {
	s := buySwap(1050, 500, 1000)
	s.ExactOut = true
	better := buySwap(10, 2000, 1000) // 实际优于报价，impact 不为负

	c := NewCollector(1)
	c.AddTx(txWithVaults(0, 0), []*core.Swap{s})
	assert.Equal(t, "0.05", c.Routes()[0].PriceImpact.String())

	c = NewCollector(1)
	c.AddTx(txWithVaults(0, 0), []*core.Swap{better})
	assert.Equal(t, "0", c.Routes()[0].PriceImpact.String())
}
