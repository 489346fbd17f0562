package enrich

import (
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

// Pool 一跳中观察到的 AMM 池子。mint 按字节序排列，金额为交易后 vault 余额。
type Pool struct {
	ID        string
	Program   types.Pubkey
	MintA     types.Pubkey
	MintB     types.Pubkey
	AmountA   uint64
	AmountB   uint64
	FeeRate   string // 费率无法从转账推出，固定 "0"
	CreatedAt int64
	UpdatedAt int64
}

// PoolID <program>:<mintA>:<mintB>，mintA < mintB
func PoolID(program, mintA, mintB types.Pubkey) string {
	if mintA.Compare(mintB) > 0 {
		mintA, mintB = mintB, mintA
	}
	return program.String() + ":" + mintA.String() + ":" + mintB.String()
}

func (c *Collector) observePools(tx *core.AdaptedTx, swap *core.Swap) {
	for _, hop := range swap.Hops {
		if !hop.Complete() {
			continue
		}
		// 进入池子的转账目标、转出转账的来源即两侧 vault
		vaultA, mintA := hop.In.Destination, hop.In.Mint
		vaultB, mintB := hop.Out.Source, hop.Out.Mint
		if mintA.Compare(mintB) > 0 {
			vaultA, vaultB = vaultB, vaultA
			mintA, mintB = mintB, mintA
		}

		id := PoolID(hop.Program, mintA, mintB)
		pool, ok := c.pools[id]
		if !ok {
			pool = &Pool{
				ID:        id,
				Program:   hop.Program,
				MintA:     mintA,
				MintB:     mintB,
				FeeRate:   "0",
				CreatedAt: c.blockTime,
			}
			c.pools[id] = pool
			c.poolIDs = append(c.poolIDs, id)
		}
		// 同一区块内后出现的交易覆盖余额
		pool.AmountA = postBalance(tx, vaultA)
		pool.AmountB = postBalance(tx, vaultB)
		pool.UpdatedAt = c.blockTime
	}
}

func postBalance(tx *core.AdaptedTx, account types.Pubkey) uint64 {
	if bal, ok := tx.Balances[account]; ok {
		return bal.PostBalance
	}
	return 0
}

// Pools 按首次出现顺序返回
func (c *Collector) Pools() []*Pool {
	out := make([]*Pool, 0, len(c.poolIDs))
	for _, id := range c.poolIDs {
		out = append(out, c.pools[id])
	}
	return out
}
